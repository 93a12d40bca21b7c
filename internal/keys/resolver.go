package keys

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrInvalidKeyShape = errors.New("source key must contain at least two path segments")
	ErrIdenticalKeys   = errors.New("destination key equals source key")
)

// Destination is where one rendition is stored. The bucket is always the
// source bucket; renditions only move to a different key prefix.
type Destination struct {
	Bucket string
	Key    string
}

// Normalize undoes the URL encoding bucket notifications apply to object
// keys: percent sequences are decoded and '+' becomes a space, the same
// form-encoding rules the notification producer applies.
func Normalize(rawKey string) (string, error) {
	decoded, err := url.QueryUnescape(rawKey)
	if err != nil {
		return "", fmt.Errorf("decode object key %q: %w", rawKey, err)
	}
	return decoded, nil
}

// ResolveDestination maps a source object to the destination for one size.
// The destination key is sizeName/<secondToLast>/<last> of the source key;
// any leading segments beyond the last two are discarded, so sources under
// an unexpected top-level prefix are tolerated. sourceKey must already be
// normalized.
func ResolveDestination(sourceBucket, sourceKey, sizeName string) (Destination, error) {
	segments := strings.Split(sourceKey, "/")
	if len(segments) < 2 {
		return Destination{}, fmt.Errorf("%w: %q", ErrInvalidKeyShape, sourceKey)
	}

	dst := Destination{
		Bucket: sourceBucket,
		Key:    sizeName + "/" + segments[len(segments)-2] + "/" + segments[len(segments)-1],
	}
	if dst.Key == sourceKey {
		return Destination{}, fmt.Errorf("%w: %q in bucket %q", ErrIdenticalKeys, sourceKey, sourceBucket)
	}
	return dst, nil
}
