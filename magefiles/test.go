//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets.
type Test mg.Namespace

// All runs every test. The PostgreSQL test skips unless
// PEPDB_TEST_POSTGRES_DSN is set.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Unit runs the tests with the PostgreSQL DSN cleared.
func (Test) Unit() error {
	return sh.RunWithV(map[string]string{postgresDSNEnv: ""}, binGo, "test", "./...")
}

// Postgres starts a disposable PostgreSQL container, runs the store tests
// against it, and removes the container.
func (Test) Postgres() error {
	rt := containerRuntime()
	if rt == "" {
		return fmt.Errorf("no usable container runtime (podman or docker)")
	}
	if err := startPostgres(rt); err != nil {
		return err
	}
	defer stopPostgres(rt)

	if err := waitPostgres(rt, 30*time.Second); err != nil {
		return err
	}
	return sh.RunWithV(map[string]string{postgresDSNEnv: postgresDSN()}, binGo, "test", "-v", "-run", "Postgres", "./internal/store/...")
}

// containerRuntime returns "podman" or "docker" if a working runtime
// is available, or "" if neither is usable.
func containerRuntime() string {
	for _, name := range []string{"podman", "docker"} {
		if _, err := exec.LookPath(name); err != nil {
			continue
		}
		if exec.Command(name, "info").Run() != nil {
			fmt.Fprintf(os.Stderr, "WARNING: %s found on PATH but not usable (is the daemon/machine running?)\n", name)
			continue
		}
		return name
	}
	return ""
}

const (
	postgresDSNEnv    = "PEPDB_TEST_POSTGRES_DSN"
	postgresImage     = "docker.io/library/postgres:16-alpine"
	postgresContainer = "pepdb-test-postgres"
	postgresPort      = "55432"
	postgresPassword  = "pepdb"
)

func postgresDSN() string {
	return "postgres://postgres:" + postgresPassword + "@localhost:" + postgresPort + "/postgres?sslmode=disable"
}

func startPostgres(rt string) error {
	fmt.Fprintln(os.Stderr, "Starting PostgreSQL container...")
	stopPostgres(rt)
	return sh.Run(rt, "run", "-d", "--rm",
		"--name", postgresContainer,
		"-e", "POSTGRES_PASSWORD="+postgresPassword,
		"-p", postgresPort+":5432",
		postgresImage)
}

// stopPostgres removes the container. Errors are ignored because the
// container may not exist.
func stopPostgres(rt string) {
	_ = exec.Command(rt, "rm", "-f", postgresContainer).Run()
}

func waitPostgres(rt string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		out, err := exec.Command(rt, "exec", postgresContainer, "pg_isready", "-U", "postgres").CombinedOutput()
		if err == nil && strings.Contains(string(out), "accepting connections") {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("postgres not ready after %s", timeout)
}
