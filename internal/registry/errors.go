package registry

import "fmt"

// LoadableTypeError reports a definition that does not have the expected shape.
type LoadableTypeError struct {
	Path     string
	Expected string
	Err      error
}

func (e *LoadableTypeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("registry: %s: expected %s: %v", e.Path, e.Expected, e.Err)
	}
	return fmt.Sprintf("registry: %s: expected %s", e.Path, e.Expected)
}

func (e *LoadableTypeError) Unwrap() error { return e.Err }

// LoadableNotFoundError reports a queued path that does not exist.
type LoadableNotFoundError struct {
	Path string
}

func (e *LoadableNotFoundError) Error() string {
	return fmt.Sprintf("registry: %s: no such file or directory", e.Path)
}

// LoadableBadKeyError reports a key whose value cannot be used, such as an unknown field or
// a reference to a catalog entry that does not exist.
type LoadableBadKeyError struct {
	Path  string
	Key   string
	Value string
}

func (e *LoadableBadKeyError) Error() string {
	return fmt.Sprintf("registry: %s: bad value %q for key %q", e.Path, e.Value, e.Key)
}

// ConflictError reports a name or alias already taken by another entry.
type ConflictError struct {
	Key string
	// Owner is the key of the entry holding Key.
	Owner string
	// Path is the file of the rejected entry, empty for in-memory items.
	Path string
}

func (e *ConflictError) Error() string {
	where := "in-memory item"
	if e.Path != "" {
		where = e.Path
	}
	return fmt.Sprintf("registry: %s: %q is already registered by %q", where, e.Key, e.Owner)
}
