// Package backup exports every collection into a zip of canonical extended JSON
// files and restores from such archives.
package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/pkg/apperr"
	"github.com/qalam-news/core/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const (
	filePrefix = "backup-"
	fileSuffix = ".zip"
	nameLayout = "2006-01-02T15-04-05"
)

// dump is the layout of one collection file inside an archive.
type dump struct {
	Collection string   `bson:"collection"`
	Documents  []bson.D `bson:"documents"`
}

// Artifact describes a backup that was written.
type Artifact struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Remote   string    `json:"remote,omitempty"`
	Created  time.Time `json:"createdAt"`
}

type Item struct {
	Filename string `json:"filename"`
	Size     string `json:"size"`
}

type Service struct {
	store    store.Store
	dir      string
	uploader Uploader
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithUploader ships every new archive through u after it is written locally.
func WithUploader(u Uploader) Option {
	return func(s *Service) { s.uploader = u }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st store.Store, dir string, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{store: st, dir: dir, logger: logger.Named("BackupService"), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create writes a new archive of every collection and uploads it when an
// uploader is configured. A failed upload keeps the local file.
func (s *Service) Create(ctx context.Context) (*Artifact, error) {
	now := s.now().UTC()
	payload, err := s.archive(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup dir: %w", err)
	}
	filename := filePrefix + now.Format(nameLayout) + fileSuffix
	if err := os.WriteFile(filepath.Join(s.dir, filename), payload, 0o644); err != nil {
		return nil, fmt.Errorf("write backup: %w", err)
	}
	art := &Artifact{Filename: filename, Size: int64(len(payload)), Created: now}

	if s.uploader != nil {
		remote, err := s.uploader.Upload(ctx, filename, payload, now)
		if err != nil {
			s.logger.Error("backup upload failed", zap.String("file", filename), zap.Error(err))
			return art, err
		}
		art.Remote = remote
	}
	s.logger.Info("backup created", zap.String("file", filename), zap.Int64("size", art.Size), zap.String("remote", art.Remote))
	return art, nil
}

func (s *Service) archive(ctx context.Context) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for _, name := range models.AllCollections {
		var docs []bson.D
		if err := s.store.Find(ctx, name, store.Filter{}, store.FindOptions{Sort: []store.SortField{{Field: "_id"}}}, &docs); err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if docs == nil {
			docs = []bson.D{}
		}
		data, err := bson.MarshalExtJSON(dump{Collection: name, Documents: docs}, true, false)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		f, err := w.Create(name + ".json")
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(data); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Restore replaces the collections found in the archive. Unknown files are ignored.
func (s *Service) Restore(ctx context.Context, payload []byte) (map[string]int, error) {
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, apperr.Validation("file", "invalid zip file")
	}

	dumps := make([]dump, 0, len(zr.File))
	for _, f := range zr.File {
		name := strings.TrimSuffix(filepath.Base(f.Name), ".json")
		if !strings.HasSuffix(f.Name, ".json") || !known(name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		var d dump
		if err := bson.UnmarshalExtJSON(data, true, &d); err != nil {
			return nil, apperr.Validation("file", fmt.Sprintf("%s is not valid extended json", f.Name))
		}
		d.Collection = name
		dumps = append(dumps, d)
	}

	restored := make(map[string]int, len(dumps))
	for _, d := range dumps {
		if _, err := s.store.DeleteMany(ctx, d.Collection, store.Filter{}); err != nil {
			return restored, fmt.Errorf("clear %s: %w", d.Collection, err)
		}
		for _, doc := range d.Documents {
			if err := s.store.Insert(ctx, d.Collection, doc); err != nil {
				return restored, fmt.Errorf("restore %s: %w", d.Collection, err)
			}
		}
		restored[d.Collection] = len(d.Documents)
	}
	s.logger.Warn("backup restored", zap.Any("collections", restored))
	return restored, nil
}

func known(collection string) bool {
	for _, c := range models.AllCollections {
		if c == collection {
			return true
		}
	}
	return false
}

// List returns local archives, newest first.
func (s *Service) List() ([]Item, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, err
	}
	items := []Item{}
	for _, e := range entries {
		if e.IsDir() || !validName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, Item{Filename: e.Name(), Size: formatSize(info.Size())})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Filename > items[j].Filename })
	return items, nil
}

// Path resolves a local archive name, refusing anything outside the backup dir.
func (s *Service) Path(filename string) (string, error) {
	if filename != filepath.Base(filename) || !validName(filename) {
		return "", apperr.Validation("filename", "invalid backup filename")
	}
	path := filepath.Join(s.dir, filename)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperr.NotFound("backup")
		}
		return "", err
	}
	return path, nil
}

func (s *Service) Remove(filename string) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

func validName(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix)
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
