package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"stayhub/internal/app/commands"
)

// IdempotentCommand opts a command into replay protection. Commands return
// the caller-supplied key and a pointer prototype matching the handler's
// result type, so a stored payload can be decoded back into it.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any
}

// IdempotencyRecord is one settled command outcome. Exactly one of Payload
// and Error is meaningful.
type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	Error      string
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

// ResultCodec round-trips handler results through the store.
type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONResultCodec) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// Idempotency settles each keyed command exactly once: the first dispatch
// runs the handler and stores its outcome, every repeat replays the stored
// outcome, errors included. Commands without a key pass straight through.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	guard := idempotencyGuard{store: store, codec: codec}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return nextFn(ctx, cmd)
			}
			return guard.dispatch(ctx, idCmd, nextFn)
		})
	}
}

type idempotencyGuard struct {
	store IdempotencyStore
	codec ResultCodec
}

func (g idempotencyGuard) dispatch(ctx context.Context, cmd IdempotentCommand, nextFn commandFunc) (any, error) {
	key := cmd.IdempotencyKey()
	rec, found, err := g.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if found {
		return g.replay(cmd, rec)
	}

	result, execErr := nextFn(ctx, cmd)
	if err := g.settle(ctx, key, result, execErr); err != nil {
		if execErr != nil {
			return nil, errors.Join(execErr, err)
		}
		return nil, err
	}
	return result, execErr
}

// replay reconstructs the stored outcome without touching the handler.
func (g idempotencyGuard) replay(cmd IdempotentCommand, rec IdempotencyRecord) (any, error) {
	if rec.Error != "" {
		return nil, errors.New(rec.Error)
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if err := g.codec.Decode(rec.Payload, proto); err != nil {
		return nil, err
	}
	if rv := reflect.ValueOf(proto); rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Interface(), nil
	}
	return proto, nil
}

// settle writes the outcome, success or failure, under the command's key.
func (g idempotencyGuard) settle(ctx context.Context, key string, result any, execErr error) error {
	rec := IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
	switch {
	case execErr != nil:
		rec.Error = execErr.Error()
	case result != nil:
		payload, err := g.codec.Encode(result)
		if err != nil {
			return err
		}
		rec.Payload = payload
	}
	return g.store.Save(ctx, rec)
}
