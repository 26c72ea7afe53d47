package identifier

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidIdentifier = errors.New("invalid identifier")

var pattern = regexp.MustCompile(`^[\w\d_]+\.[\w\d_]+\.[\w\d-]+$`)

// Identifiable is implemented by entities kept in a search index
type Identifiable interface {
	// ContentType returns "app.model"
	ContentType() string
	// PrimaryKey returns the entity's primary key as a string
	PrimaryKey() string
}

// LookupFunc resolves the identifier of an instance
type LookupFunc func(instance any) (string, error)

// Lookup returns the "app.model.pk" identifier of an instance. Strings are
// validated and returned unchanged.
func Lookup(instance any) (string, error) {
	var id string

	switch v := instance.(type) {
	case string:
		id = v
	case Identifiable:
		id =v.ContentType() + "." + v.PrimaryKey()
	case nil:
		return "", fmt.Errorf("%w: nil instance", ErrInvalidIdentifier)
	default:
		return "", fmt.Errorf("%w: %T is not identifiable", ErrInvalidIdentifier, instance)
	}

	if !pattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}

	return id, nil
}

// Parse splits an identifier into its content type and primary key
func Parse(id string) (contentType string, pk string, err error) {
	if !pattern.MatchString(id) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}

	idx := strings.LastIndex(id, ".")
	return id[:idx], id[idx+1:], nil
}
