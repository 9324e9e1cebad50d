// Package fserrors defines the error taxonomy of the filesystem layer.
// Every error carries a Kind for programmatic handling and the path it
// concerns; store failures are wrapped with KindDatabase.
package fserrors

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindFileNotFound Kind = iota + 1
	KindDirectoryNotFound
	KindPathExists
	KindInvalidPath
	// KindPathTraversal is reserved: sandbox violations are clamped to the
	// mount root rather than rejected, so nothing raises it today.
	KindPathTraversal
	KindDatabase
	KindSerialization
)

func (k Kind) String() string {
	switch k {
	case KindFileNotFound:
		return "file not found"
	case KindDirectoryNotFound:
		return "directory not found"
	case KindPathExists:
		return "path already exists"
	case KindInvalidPath:
		return "invalid path"
	case KindPathTraversal:
		return "path traversal attempt"
	case KindDatabase:
		return "database error"
	case KindSerialization:
		return "serialization error"
	default:
		return "unknown error"
	}
}

type Error struct {
	Kind    Kind
	Path    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Path != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Path)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func FileNotFound(path string) error {
	return &Error{Kind: KindFileNotFound, Path: path}
}

func DirectoryNotFound(path string) error {
	return &Error{Kind: KindDirectoryNotFound, Path: path}
}

func PathExists(path string) error {
	return &Error{Kind: KindPathExists, Path: path}
}

func InvalidPath(path, message string) error {
	return &Error{Kind: KindInvalidPath, Path: path, Message: message}
}

func Database(err error) error {
	return &Error{Kind: KindDatabase, Err: err}
}

func Serialization(err error) error {
	return &Error{Kind: KindSerialization, Err: err}
}
