package cart

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps the cart as JSON in one file, replaced atomically.
type FileStore struct {
	Path string
}

type document struct {
	Key   string `json:"key"`
	Items []Item `json:"items"`
}

func (f *FileStore) Load() ([]Item, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		// a corrupt cart is discarded, as a browser would drop bad storage
		return nil, nil
	}
	return doc.Items, nil
}

func (f *FileStore) Save(items []Item) error {
	if items == nil {
		items = []Item{}
	}
	b, err := json.MarshalIndent(document{Key: StorageKey, Items: items}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".cart-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

// DefaultPath is $FITMEAL_CART or ~/.fitmeal/cart.json.
func DefaultPath() string {
	if p := os.Getenv("FITMEAL_CART"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".fitmeal", "cart.json")
	}
	return filepath.Join(home, ".fitmeal", "cart.json")
}
