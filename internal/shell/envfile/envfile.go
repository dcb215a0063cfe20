// Package envfile materializes and inspects the shared .env file.
//
// Both stacks resolve their variables from one root .env; the dependency
// stack reads it from inside its own compose directory, so the file is
// copied there before every startup.
package envfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// ErrMissingSource means the root .env does not exist. There is no
// sensible default to fall back to: the file carries credentials the
// operator must choose.
var ErrMissingSource = errors.New("env file not found")

// Materialize copies the env file at src to dst, overwriting whatever is
// there. The destination directory must already exist; for the dependency
// stack it comes from the repository checkout.
func Materialize(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s (copy .env.example to .env and fill in the secrets)", ErrMissingSource, src)
		}
		return fmt.Errorf("reading %s: %w", src, err)
	}

	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return nil
}

// Load parses the env file at path into a map, for interpolation and for
// the doctor's checks.
func Load(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingSource, path)
		}
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return env, nil
}

// RequiredKeys are the variables the stacks cannot start without: the
// n8n encryption pair and the Supabase credential set.
func RequiredKeys() []string {
	return []string{
		"N8N_ENCRYPTION_KEY",
		"N8N_USER_MANAGEMENT_JWT_SECRET",
		"POSTGRES_PASSWORD",
		"JWT_SECRET",
		"ANON_KEY",
		"SERVICE_ROLE_KEY",
	}
}

// MissingKeys returns the required keys absent or empty in env, in the
// order RequiredKeys lists them.
func MissingKeys(env map[string]string, required []string) []string {
	var missing []string
	for _, key := range required {
		if env[key] == "" {
			missing = append(missing, key)
		}
	}
	return missing
}
