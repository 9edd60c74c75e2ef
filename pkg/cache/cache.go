package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Close() error
}

// Clock returns the current time. Tests swap it to control expiry.
type Clock func() time.Time

// assign copies value into dest, which must be a non-nil pointer.
// Values of a matching type are assigned directly; anything else goes through JSON.
func assign(dest, value interface{}) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("cache: dest must be a non-nil pointer, got %T", dest)
	}

	vv := reflect.ValueOf(value)
	if vv.IsValid() && vv.Type().AssignableTo(dv.Elem().Type()) {
		dv.Elem().Set(vv)
		return nil
	}
	if vv.IsValid() && vv.Kind() == reflect.Pointer && !vv.IsNil() && vv.Elem().Type().AssignableTo(dv.Elem().Type()) {
		dv.Elem().Set(vv.Elem())
		return nil
	}

	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("cache: decode: %w", err)
	}
	return nil
}
