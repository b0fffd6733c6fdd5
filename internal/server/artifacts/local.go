package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	serr "github.com/IvanChernomyrdin/gophassist/internal/shared/errors"
)

// Local — файлы в каталоге dir/<owner>/<name>.
type Local struct {
	dir string
	// urlPrefix — откуда артефакт отдаёт API, например "/artifacts".
	urlPrefix string
	now       func() time.Time
}

func NewLocal(dir, urlPrefix string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("artifacts: mkdir %s: %w", dir, err)
	}
	return &Local{dir: dir, urlPrefix: urlPrefix, now: time.Now}, nil
}

func (l *Local) Put(_ context.Context, owner, name, contentType string, data []byte) (Artifact, error) {
	key, err := Key(owner, name)
	if err != nil {
		return Artifact{}, err
	}

	ownerDir := filepath.Join(l.dir, owner)
	if err := os.MkdirAll(ownerDir, 0o750); err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", serr.ErrStorage, err)
	}

	// запись через временный файл, чтобы Open не увидел половину
	tmp, err := os.CreateTemp(ownerDir, ".tmp-*")
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", serr.ErrStorage, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return Artifact{}, fmt.Errorf("%w: %v", serr.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return Artifact{}, fmt.Errorf("%w: %v", serr.ErrStorage, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(ownerDir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return Artifact{}, fmt.Errorf("%w: %v", serr.ErrStorage, err)
	}

	if contentType == "" {
		contentType = ContentTypeFor(name)
	}
	return Artifact{
		Name:        name,
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		URL:         l.urlPrefix + "/" + name,
		CreatedAt:   l.now().UTC(),
	}, nil
}

func (l *Local) Open(_ context.Context, key string) (io.ReadCloser, Artifact, error) {
	owner, name, err := splitKey(key)
	if err != nil {
		return nil, Artifact{}, err
	}

	p := filepath.Join(l.dir, owner, name)
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Artifact{}, serr.ErrNotFound
		}
		return nil, Artifact{}, fmt.Errorf("%w: %v", serr.ErrStorage, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, Artifact{}, fmt.Errorf("%w: %v", serr.ErrStorage, err)
	}

	return f, Artifact{
		Name:        name,
		Key:         key,
		ContentType: ContentTypeFor(name),
		Size:        st.Size(),
		URL:         l.urlPrefix + "/" + name,
		CreatedAt:   st.ModTime().UTC(),
	}, nil
}
