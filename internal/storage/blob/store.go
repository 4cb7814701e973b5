package blob

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/ncecere/feedback_assistant/internal/config"
)

// ErrNotFound is returned when a key has no stored object.
var ErrNotFound = errors.New("blob: object not found")

type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
	Metadata    map[string]string
	Encrypted   bool
}

// Store persists opaque objects by key. Put replaces whole objects atomically
// so readers never observe a partial write.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

type backendStore interface {
	Store
}

type store struct {
	backend   backendStore
	encryptor *encryptor
}

// New builds the configured backend, wrapping it with at-rest encryption when
// an encryption key is set.
func New(ctx context.Context, cfg config.AudioConfig) (Store, error) {
	backend, err := buildBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	enc, err := newEncryptor(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	return &store{backend: backend, encryptor: enc}, nil
}

func buildBackend(ctx context.Context, cfg config.AudioConfig) (backendStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage)) {
	case "s3":
		awsCfg, err := loadS3Config(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return newS3Store(cfg.S3, awsCfg)
	default:
		return newLocalStore(cfg.Local.Directory)
	}
}

func (s *store) Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (ObjectInfo, error) {
	if s.encryptor == nil {
		return s.backend.Put(ctx, key, body, opts)
	}
	encReader, plainSize, metadata, err := s.encryptor.encrypt(body)
	if err != nil {
		return ObjectInfo{}, err
	}
	info, err := s.backend.Put(ctx, key, encReader, PutOptions{
		ContentType: opts.ContentType,
		Metadata:    mergeMetadata(opts.Metadata, metadata),
	})
	if err != nil {
		return ObjectInfo{}, err
	}
	info = s.plainInfo(info)
	info.Size = plainSize
	return info, nil
}

func (s *store) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	reader, info, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	if !isEncrypted(info.Metadata) {
		return reader, info, nil
	}
	if s.encryptor == nil {
		reader.Close()
		return nil, ObjectInfo{}, errors.New("blob: object is encrypted but no encryption key is configured")
	}
	defer reader.Close()
	decReader, size, err := s.encryptor.decrypt(reader)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	info = s.plainInfo(info)
	info.Size = size
	return decReader, info, nil
}

func (s *store) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := s.backend.Stat(ctx, key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if isEncrypted(info.Metadata) {
		return s.plainInfo(info), nil
	}
	return info, nil
}

func (s *store) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// plainInfo reports the decrypted size recorded at write time and hides the
// cipher bookkeeping keys from callers.
func (s *store) plainInfo(info ObjectInfo) ObjectInfo {
	if raw, ok := info.Metadata[plainSizeKey]; ok {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			info.Size = n
		}
	}
	public := make(map[string]string, len(info.Metadata))
	for k, v := range info.Metadata {
		switch k {
		case encryptionMetadataKey, encryptionNonceKey, plainSizeKey:
			continue
		}
		public[k] = v
	}
	if len(public) == 0 {
		public = nil
	}
	info.Metadata = public
	info.Encrypted = true
	return info
}

func mergeMetadata(a, b map[string]string) map[string]string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	merged := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		merged[k] = v
	}
	for k, v := range b {
		merged[k] = v
	}
	return merged
}

func isEncrypted(meta map[string]string) bool {
	if meta == nil {
		return false
	}
	_, ok := meta[encryptionMetadataKey]
	return ok
}
