// SPDX-License-Identifier: MIT
//
// Namespaced persistent key/value storage.
//
// Values are typed: reading a key with a type other than the one it was
// written with is an error.  Every change is written to the YAML file at
// once, through a temporary file and a rename.
//

package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"

	"captiveportal/log"
)

const (
	MaxKeyLength = 15 // bytes, also for namespace names
)

var (
	ErrNotFound     = errors.New("storage: key not found")
	ErrTypeMismatch = errors.New("storage: type mismatch")
	ErrInvalidKey   = errors.New("storage: invalid key")
)

// Value lists the storable types.
type Value interface {
	bool | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 |
		string | []byte
}

type entry struct {
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

type fileContent struct {
	Namespaces map[string]map[string]entry `yaml:"namespaces"`
}

type Store struct {
	path string
	lock sync.Mutex
	data map[string]map[string]entry
}

// Open loads the store from the file, which is created on the first write
// if it doesn't exist.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		data: make(map[string]map[string]entry),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Infof("storage file [%s] doesn't exist; start empty", path)
		return s, nil
	} else if err != nil {
		log.Errorf("failed to read storage file [%s]: %v", path, err)
		return nil, err
	}

	var fc fileContent
	if err := yaml.Unmarshal(data, &fc); err != nil {
		log.Errorf("failed to parse storage file [%s]: %v", path, err)
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for name, entries := range fc.Namespaces {
		if entries != nil {
			s.data[name] = entries
		}
	}
	log.Debugf("loaded %d namespaces from: %s", len(s.data), path)
	return s, nil
}

func checkKey(key string) error {
	if key == "" || len(key) > MaxKeyLength {
		return fmt.Errorf("%w: [%s]", ErrInvalidKey, key)
	}
	return nil
}

// Namespace returns a handle on the named namespace.
func (s *Store) Namespace(name string) (*Namespace, error) {
	if err := checkKey(name); err != nil {
		return nil, err
	}
	return &Namespace{store: s, name: name}, nil
}

// save must be called with the lock held.
func (s *Store) save() error {
	data, err := yaml.Marshal(&fileContent{Namespaces: s.data})
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	f, err := os.CreateTemp(dir, filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0600); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func (s *Store) get(ns, key string) (entry, error) {
	if err := checkKey(key); err != nil {
		return entry{}, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	e, ok := s.data[ns][key]
	if !ok {
		return entry{}, fmt.Errorf("%w: %s/%s", ErrNotFound, ns, key)
	}
	return e, nil
}

func (s *Store) set(ns, key string, e entry) error {
	if err := checkKey(key); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	entries := s.data[ns]
	if entries == nil {
		entries = make(map[string]entry)
		s.data[ns] = entries
	}
	old, existed := entries[key]
	entries[key] = e
	if err := s.save(); err != nil {
		// Keep memory and file consistent.
		if existed {
			entries[key] = old
		} else {
			delete(entries, key)
		}
		log.Errorf("failed to write storage file [%s]: %v", s.path, err)
		return err
	}
	return nil
}

func (s *Store) erase(ns string, keys ...string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	entries := s.data[ns]
	if len(keys) == 0 {
		if len(entries) == 0 {
			return nil
		}
		delete(s.data, ns)
		return s.save()
	}

	key := keys[0]
	if _, ok := entries[key]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, ns, key)
	}
	delete(entries, key)
	return s.save()
}

type Namespace struct {
	store *Store
	name  string
}

func (ns *Namespace) Name() string {
	return ns.name
}

// Keys returns the sorted keys of the namespace.
func (ns *Namespace) Keys() []string {
	ns.store.lock.Lock()
	defer ns.store.lock.Unlock()
	keys := make([]string, 0, len(ns.store.data[ns.name]))
	for k := range ns.store.data[ns.name] {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// TypeOf returns the type tag of the stored key.
func (ns *Namespace) TypeOf(key string) (string, error) {
	e, err := ns.store.get(ns.name, key)
	if err != nil {
		return "", err
	}
	return e.Type, nil
}

func (ns *Namespace) Erase(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return ns.store.erase(ns.name, key)
}

func (ns *Namespace) EraseAll() error {
	return ns.store.erase(ns.name)
}

// Get reads the key as type T.
func Get[T Value](ns *Namespace, key string) (T, error) {
	var v T
	e, err := ns.store.get(ns.name, key)
	if err != nil {
		return v, err
	}
	if tag := typeTag(v); e.Type != tag {
		return v, fmt.Errorf("%w: %s/%s is %s, not %s",
			ErrTypeMismatch, ns.name, key, e.Type, tag)
	}
	if err := decode(e.Value, &v); err != nil {
		return v, fmt.Errorf("decode %s/%s: %w", ns.name, key, err)
	}
	return v, nil
}

// Set writes the key with type T, replacing any previous value and type.
func Set[T Value](ns *Namespace, key string, v T) error {
	return ns.store.set(ns.name, key, entry{
		Type:  typeTag(v),
		Value: encode(v),
	})
}

func typeTag(v any) string {
	switch v.(type) {
	case bool:
		return "bool"
	case int8:
		return "i8"
	case int16:
		return "i16"
	case int32:
		return "i32"
	case int64:
		return "i64"
	case uint8:
		return "u8"
	case uint16:
		return "u16"
	case uint32:
		return "u32"
	case uint64:
		return "u64"
	case string:
		return "str"
	case []byte:
		return "blob"
	default:
		panic(fmt.Sprintf("storage: unsupported type %T", v))
	}
}

func encode(v any) string {
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case string:
		return x
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	default:
		panic(fmt.Sprintf("storage: unsupported type %T", v))
	}
}

func decode(s string, v any) error {
	var err error
	switch p := v.(type) {
	case *bool:
		*p, err = strconv.ParseBool(s)
	case *int8:
		var n int64
		n, err = strconv.ParseInt(s, 10, 8)
		*p = int8(n)
	case *int16:
		var n int64
		n, err = strconv.ParseInt(s, 10, 16)
		*p = int16(n)
	case *int32:
		var n int64
		n, err = strconv.ParseInt(s, 10, 32)
		*p = int32(n)
	case *int64:
		*p, err = strconv.ParseInt(s, 10, 64)
	case *uint8:
		var n uint64
		n, err = strconv.ParseUint(s, 10, 8)
		*p = uint8(n)
	case *uint16:
		var n uint64
		n, err = strconv.ParseUint(s, 10, 16)
		*p = uint16(n)
	case *uint32:
		var n uint64
		n, err = strconv.ParseUint(s, 10, 32)
		*p = uint32(n)
	case *uint64:
		*p, err = strconv.ParseUint(s, 10, 64)
	case *string:
		*p = s
	case *[]byte:
		*p, err = base64.StdEncoding.DecodeString(s)
	default:
		panic(fmt.Sprintf("storage: unsupported type %T", v))
	}
	return err
}
