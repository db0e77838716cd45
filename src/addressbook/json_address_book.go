package addressbook

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// JSONAddressBook is used to provide address book persistence on disk in the
// form of a JSON file.
type JSONAddressBook struct {
	l    sync.Mutex
	path string
}

// NewJSONAddressBook creates a new JSONAddressBook backed by the file at path.
func NewJSONAddressBook(path string) *JSONAddressBook {
	return &JSONAddressBook{
		path: path,
	}
}

// Path ...
func (j *JSONAddressBook) Path() string {
	return j.path
}

// Read parses the underlying JSON file. An empty file is an empty book.
func (j *JSONAddressBook) Read() (*AddressBook, error) {
	j.l.Lock()
	defer j.l.Unlock()

	buf, err := os.ReadFile(j.path)
	if err != nil {
		return nil, err
	}

	book := &AddressBook{}

	if len(bytes.TrimSpace(buf)) == 0 {
		return book, nil
	}

	if err := json.Unmarshal(buf, book); err != nil {
		return nil, err
	}

	return book, nil
}

// Write persists an address book to the JSON file, replacing it atomically.
func (j *JSONAddressBook) Write(book *AddressBook) error {
	j.l.Lock()
	defer j.l.Unlock()

	buf, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(j.path), 0700); err != nil {
		return err
	}

	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0600); err != nil {
		return err
	}

	return os.Rename(tmp, j.path)
}
