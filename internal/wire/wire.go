// Package wire encodes the messages exchanged with the embedding page. Every
// frame is a protobuf google.protobuf.Struct of the form
//
//	{type: "host:start", payload: {...}}
//
// so clients can decode it with any protobuf runtime without generated code.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"gallop/internal/sim"
)

// Inbound command types.
const (
	TypeStart  = "host:start"
	TypePause  = "host:pause"
	TypeEnd    = "host:end"
	TypeLoaded = "host:loaded"
)

// Outbound event types.
const (
	TypeProgress = "game:progress"
	TypeReady    = "game:ready"
	TypeState    = "game:state"
	TypeFinished = "game:finished"
	TypeError    = "game:error"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrMalformed      = errors.New("malformed message")
)

// Command is a decoded inbound message.
type Command struct {
	Type  string
	Start sim.StartOptions
	// Lane is the 1-based lane of a host:loaded command.
	Lane int
}

// DecodeCommand parses one inbound frame. Options may sit in a payload
// object or directly on the message.
func DecodeCommand(data []byte) (Command, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}

	typ := msg.GetFields()["type"].GetStringValue()
	fields := msg.GetFields()
	if p := fields["payload"].GetStructValue(); p != nil {
		fields = p.GetFields()
	}

	cmd := Command{Type: typ}
	switch typ {
	case TypePause, TypeEnd:
		return cmd, nil
	case TypeStart:
		opts, err := startOptions(fields)
		if err != nil {
			return Command{}, err
		}
		cmd.Start = opts
		return cmd, nil
	case TypeLoaded:
		lane, err := integer(fields, "lane")
		if err != nil {
			return Command{}, err
		}
		cmd.Lane = lane
		return cmd, nil
	}
	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, typ)
}

func startOptions(fields map[string]*structpb.Value) (sim.StartOptions, error) {
	opts := sim.StartOptions{
		GameID:       fields["gameId"].GetStringValue(),
		DurationSec:  fields["durationSec"].GetNumberValue(),
		CountdownSec: fields["countdown"].GetNumberValue(),
	}
	if v, ok := fields["rank"]; ok {
		list := v.GetListValue()
		if list == nil {
			return sim.StartOptions{}, fmt.Errorf("%w: rank must be a list", ErrMalformed)
		}
		for _, item := range list.GetValues() {
			n, ok := wholeNumber(item)
			if !ok {
				return sim.StartOptions{}, fmt.Errorf("%w: rank entries must be lane numbers", ErrMalformed)
			}
			opts.Rank = append(opts.Rank, n)
		}
	}
	if opts.DurationSec < 0 || opts.CountdownSec < 0 {
		return sim.StartOptions{}, fmt.Errorf("%w: negative duration", ErrMalformed)
	}
	return opts, nil
}

func integer(fields map[string]*structpb.Value, key string) (int, error) {
	n, ok := wholeNumber(fields[key])
	if !ok {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrMalformed, key)
	}
	return n, nil
}

// wholeNumber converts a number value that is integral and within int32
// range.
func wholeNumber(v *structpb.Value) (int, bool) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}
	f := n.NumberValue
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// EncodeCommand is the inverse of DecodeCommand.
func EncodeCommand(cmd Command) ([]byte, error) {
	payload := map[string]interface{}{}
	switch cmd.Type {
	case TypePause, TypeEnd:
	case TypeStart:
		if cmd.Start.GameID != "" {
			payload["gameId"] = cmd.Start.GameID
		}
		if len(cmd.Start.Rank) > 0 {
			rank := make([]interface{}, len(cmd.Start.Rank))
			for k, n := range cmd.Start.Rank {
				rank[k] = n
			}
			payload["rank"] = rank
		}
		if cmd.Start.DurationSec > 0 {
			payload["durationSec"] = cmd.Start.DurationSec
		}
		if cmd.Start.CountdownSec > 0 {
			payload["countdown"] = cmd.Start.CountdownSec
		}
	case TypeLoaded:
		payload["lane"] = cmd.Lane
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	return EncodeEvent(cmd.Type, payload)
}

// EncodeEvent wraps fields into a typed frame.
func EncodeEvent(typ string, fields map[string]interface{}) ([]byte, error) {
	payload, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", typ, err)
	}
	return envelope(typ, payload)
}

// EncodeSnapshot encodes a game:state frame.
func EncodeSnapshot(s sim.Snapshot) ([]byte, error) {
	return encodeJSON(TypeState, s)
}

// EncodeResult encodes the game:finished frame.
func EncodeResult(r sim.Result) ([]byte, error) {
	return encodeJSON(TypeFinished, r)
}

// EncodeProgress encodes a game:progress frame.
func EncodeProgress(percent int) ([]byte, error) {
	return EncodeEvent(TypeProgress, map[string]interface{}{"value": percent})
}

// EncodeError encodes a game:error frame.
func EncodeError(err error) ([]byte, error) {
	return EncodeEvent(TypeError, map[string]interface{}{"error": err.Error()})
}

// encodeJSON goes through the value's JSON form so struct tags decide the
// payload field names.
func encodeJSON(typ string, v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", typ, err)
	}
	payload := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("encode %s: %w", typ, err)
	}
	return envelope(typ, payload)
}

func envelope(typ string, payload *structpb.Struct) ([]byte, error) {
	msg := &structpb.Struct{Fields: map[string]*structpb.Value{
		"type":    structpb.NewStringValue(typ),
		"payload": structpb.NewStructValue(payload),
	}}
	return proto.Marshal(msg)
}

// DecodeEvent splits a frame into its type and payload.
func DecodeEvent(data []byte) (string, map[string]interface{}, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return "", nil, fmt.Errorf("decode event: %w", err)
	}
	typ := msg.GetFields()["type"].GetStringValue()
	if typ == "" {
		return "", nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return typ, msg.GetFields()["payload"].GetStructValue().AsMap(), nil
}
