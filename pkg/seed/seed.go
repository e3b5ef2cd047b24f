// Package seed loads a catalog file into an item repository and its images
// into the image store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"shopmart/pkg/blob"
	"shopmart/pkg/item"
)

// Entry is one catalog item. An empty ID is assigned on load.
type Entry struct {
	ID          string  `yaml:"id"`
	ItemName    string  `yaml:"itemName"`
	Description string  `yaml:"description"`
	Category    string  `yaml:"category"`
	Stock       int     `yaml:"stock"`
	Price       float64 `yaml:"price"`
	Image       string  `yaml:"image"`
}

// ErrMissingID is returned by RequireIDs for entries loaded without an id.
var ErrMissingID = errors.New("catalog entry has no id")

// Catalog is the file format.
type Catalog struct {
	Items []Entry `yaml:"items"`

	dir       string
	generated []string
}

// LoadFile parses a catalog. Image paths are relative to the file.
func LoadFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog %q: %w", path, err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog %q: %w", path, err)
	}
	c.dir = filepath.Dir(path)

	for i := range c.Items {
		if c.Items[i].ID == "" {
			c.Items[i].ID = item.NewID()
			c.generated = append(c.generated, c.Items[i].ItemName)
		}
	}
	return c, nil
}

// RequireIDs fails when any entry was given an id on load. Applying such a
// catalog twice to a persistent store creates those items twice.
func (c Catalog) RequireIDs() error {
	if len(c.generated) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingID, strings.Join(c.generated, ", "))
}

func (e Entry) item() item.Item {
	return item.Item{
		ID:          e.ID,
		ItemName:    e.ItemName,
		Description: e.Description,
		Stock:       e.Stock,
		Price:       e.Price,
		Category:    e.Category,
	}
}

// Result counts what Apply did.
type Result struct {
	Created  int
	Updated  int
	Uploaded int
}

// Apply creates every entry, updating the ones that already exist, and
// uploads images when images is non-nil.
func Apply(ctx context.Context, repo item.Repository, images blob.Store, c Catalog) (Result, error) {
	var res Result
	for _, e := range c.Items {
		it := e.item()
		err := repo.Create(ctx, it)
		switch {
		case errors.Is(err, item.ErrAlreadyExists):
			if err := repo.Update(ctx, it); err != nil {
				return res, fmt.Errorf("update %s: %w", it.ID, err)
			}
			res.Updated++
		case err != nil:
			return res, fmt.Errorf("create %s: %w", it.ID, err)
		default:
			res.Created++
		}

		if e.Image == "" || images == nil {
			continue
		}
		if err := upload(ctx, images, it.ID, filepath.Join(c.dir, e.Image)); err != nil {
			return res, err
		}
		res.Uploaded++
	}
	return res, nil
}

func upload(ctx context.Context, images blob.Store, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		head := make([]byte, 512)
		n, _ := f.Read(head)
		ct = http.DetectContentType(head[:n])
		if _, err := f.Seek(0, 0); err != nil {
			return fmt.Errorf("rewind image: %w", err)
		}
	}

	if err := images.Put(ctx, key, f, ct); err != nil {
		return fmt.Errorf("upload image for %s: %w", key, err)
	}
	return nil
}
