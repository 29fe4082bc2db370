package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// EnvFile writes a single key back into a .env file. It exists for the
// startup repair path, which provisions a new remote document and must
// remember its id for the next run.
type EnvFile struct {
	Path string
	Key  string
}

// SaveDocumentID stores id under f.Key in the file and the process
// environment. Other keys in the file are preserved; comments are not.
func (f EnvFile) SaveDocumentID(id string) error {
	env, err := godotenv.Read(f.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read %s: %w", f.Path, err)
		}
		env = map[string]string{}
	}
	env[f.Key] = id
	if err := godotenv.Write(env, f.Path); err != nil {
		return fmt.Errorf("write %s: %w", f.Path, err)
	}
	return os.Setenv(f.Key, id)
}
