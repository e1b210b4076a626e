package tokenstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natserract/sfclient/pkg/salesforce"
	"go.uber.org/zap"
)

// DefaultFileName is the file a FileStore writes inside its directory.
const DefaultFileName = "sf-key"

// FileStore keeps the token as a file in a local writable directory.
type FileStore struct {
	dir    string
	name   string
	sealer Sealer
	logger *zap.Logger
}

type Option func(*FileStore)

// WithFileName overrides DefaultFileName.
func WithFileName(name string) Option {
	return func(s *FileStore) {
		if strings.TrimSpace(name) != "" {
			s.name = name
		}
	}
}

// WithSealer encrypts the file contents.
func WithSealer(sealer Sealer) Option {
	return func(s *FileStore) { s.sealer = sealer }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *FileStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewFileStore(dir string, opts ...Option) *FileStore {
	s := &FileStore{
		dir:    dir,
		name:   DefaultFileName,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path is the full path of the token file.
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, s.name)
}

func (s *FileStore) Fetch(ctx context.Context) (*salesforce.AccessToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Debug("Access token file not readable", zap.String("path", path), zap.Error(err))
		return nil, &salesforce.StoreNotFoundError{Location: path, Err: err}
	}

	token, err := Decode(data, s.sealer)
	if err != nil {
		s.logger.Error("Failed to decode access token file", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	s.logger.Debug("Fetched access token", zap.String("path", path))
	return token, nil
}

func (s *FileStore) Save(ctx context.Context, token *salesforce.AccessToken) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(token, s.sealer)
	if err != nil {
		return fmt.Errorf("save access token: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("save access token: create dir: %w", err)
	}

	path := s.Path()
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("save access token: write file: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("save access token: chmod file: %w", err)
	}

	s.logger.Info("Saved access token", zap.String("path", path), zap.Bool("sealed", s.sealer != nil))
	return nil
}
