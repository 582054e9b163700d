package errors

import "fmt"

type Op string

type Code uint

type Error struct {
	Op   Op
	Kind Code
	Err  error
	Msg  string
}

const (
	KindUnexpected Code = iota // zero type is purposefully KindUnexpected
	KindNotFound
	KindBadRequest
	KindBadResponse
	KindAuthError
	KindForbidden
	KindJWTError
	KindConflict
	KindVotingClosed
	KindStorageError
	KindServiceUnavailable
)

func (e Error) Error() string {
	if e.Msg != "" && e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Msg, e.Err.Error())
	}

	if e.Msg != "" {
		return e.Msg
	}

	if e.Err != nil {
		return e.Err.Error()
	}

	return string(e.Op)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Kind(err error) Code {
	e, ok := err.(*Error)
	if !ok {
		return KindUnexpected
	}

	if e.Kind != 0 {
		return e.Kind
	}

	return Kind(e.Err)
}

// Message walks an error chain looking for the innermost Msg, which for
// API errors is the text the server returned.  The empty string means no
// message was attached anywhere along the chain.
func Message(err error) string {
	e, ok := err.(*Error)
	if !ok {
		return ""
	}

	if inner := Message(e.Err); inner != "" {
		return inner
	}

	return e.Msg
}

func E(args ...interface{}) error {
	e := Error{}
	for _, arg := range args {
		switch arg := arg.(type) {
		case Op:
			e.Op = arg
		case Code:
			e.Kind = arg
		case string:
			e.Msg = arg
		case error:
			e.Err = arg
		default:
			panic("bad call to E")
		}
	}

	return &e
}

func Ops(e *Error) []Op {
	res := []Op{e.Op}

	subErr, ok := e.Err.(*Error)
	if !ok {
		return res
	}

	res = append(res, Ops(subErr)...)

	return res
}
