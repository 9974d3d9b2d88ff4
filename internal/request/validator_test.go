package request

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/calendar/internal/operation"
)

type fakeSessions map[string]int64

func (f fakeSessions) Get(token string) (int64, bool) {
	id, ok := f[token]
	return id, ok
}

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	fields, err := Decode(strings.NewReader(body))
	require.NoError(t, err)
	return fields
}

func TestDecode_Malformed(t *testing.T) {
	for _, body := range []string{``, `not json`, `[1,2]`, `null`, `"str"`, `{"type":`,
		`{"type":"register","login":"eve","password":"p"} trailing-garbage`,
		`{"type":"login"}{"type":"register"}`,
		`{"type":"login"} 1`,
	} {
		_, err := Decode(strings.NewReader(body))
		assert.ErrorIs(t, err, ErrMalformed, body)
	}
}

func TestDecode_TrailingWhitespace(t *testing.T) {
	fields, err := Decode(strings.NewReader("{\"type\":\"login\"}\n\t "))
	require.NoError(t, err)
	assert.Equal(t, "login", fields["type"])
}

func TestValidate(t *testing.T) {
	sessions := fakeSessions{"tok-alice": 7}
	v := NewValidator(sessions)

	tests := []struct {
		name    string
		body    string
		cookie  string
		kind    operation.Kind
		params  Params
		wantErr error
	}{
		{
			name:   "login",
			body:   `{"type":"login","login":"alice","password":"pw1"}`,
			kind:   operation.Login,
			params: Params{Login: "alice", Password: "pw1"},
		},
		{
			name:   "register ignores session",
			body:   `{"type":"register","login":"bob","password":"x"}`,
			cookie: "tok-alice",
			kind:   operation.Register,
			params: Params{Login: "bob", Password: "x"},
		},
		{
			name:    "login missing password",
			body:    `{"type":"login","login":"alice"}`,
			kind:    operation.Login,
			wantErr: ErrMissingFields,
		},
		{
			name:    "login empty password",
			body:    `{"type":"login","login":"alice","password":""}`,
			kind:    operation.Login,
			wantErr: ErrMissingFields,
		},
		{
			name:    "unknown type",
			body:    `{"type":"delete_everything"}`,
			wantErr: ErrUnknownOperation,
		},
		{
			name:    "missing type",
			body:    `{"login":"alice","password":"pw1"}`,
			wantErr: ErrUnknownOperation,
		},
		{
			name:    "non-string type",
			body:    `{"type":1}`,
			wantErr: ErrUnknownOperation,
		},
		{
			name:   "save event with session",
			body:   `{"type":"save_event","name":"standup","date":"20250101","time":"0930","duration":30}`,
			cookie: "tok-alice",
			kind:   operation.SaveEvent,
			params: Params{Name: "standup", Date: "20250101", Time: "0930", Duration: 30, UserID: 7},
		},
		{
			name:   "save event numeric string duration",
			body:   `{"type":"save_event","name":"standup","date":"20250101","time":"0930","duration":"45"}`,
			cookie: "tok-alice",
			kind:   operation.SaveEvent,
			params: Params{Name: "standup", Date: "20250101", Time: "0930", Duration: 45, UserID: 7},
		},
		{
			name:    "save event bad duration",
			body:    `{"type":"save_event","name":"standup","date":"20250101","time":"0930","duration":"long"}`,
			cookie:  "tok-alice",
			kind:    operation.SaveEvent,
			wantErr: ErrInvalidField,
		},
		{
			name:    "save event fractional duration",
			body:    `{"type":"save_event","name":"standup","date":"20250101","time":"0930","duration":1.5}`,
			cookie:  "tok-alice",
			kind:    operation.SaveEvent,
			wantErr: ErrInvalidField,
		},
		{
			name:    "save event without session",
			body:    `{"type":"save_event","name":"standup","date":"20250101","time":"0930","duration":30}`,
			kind:    operation.SaveEvent,
			wantErr: ErrMissingFields,
		},
		{
			name:    "client supplied user id is ignored",
			body:    `{"type":"get_events","user_id":1}`,
			cookie:  "unknown-token",
			kind:    operation.GetEvents,
			wantErr: ErrMissingFields,
		},
		{
			name:   "client supplied user id is replaced",
			body:   `{"type":"get_username","user_id":1}`,
			cookie: "tok-alice",
			kind:   operation.GetUsername,
			params: Params{UserID: 7},
		},
		{
			name:    "numeric login rejected shape",
			body:    `{"type":"register","login":{"a":1},"password":"x"}`,
			kind:    operation.Register,
			wantErr: ErrInvalidField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, params, err := v.Validate(decode(t, tt.body), tt.cookie)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
				assert.Equal(t, tt.kind, kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestValidate_ListsMissingFields(t *testing.T) {
	v := NewValidator(fakeSessions{"t": 1})

	_, _, err := v.Validate(decode(t, `{"type":"save_event","name":"x"}`), "t")
	require.ErrorIs(t, err, ErrMissingFields)
	assert.Contains(t, err.Error(), "date, duration, time")
}

func TestValidate_DoesNotMutateInput(t *testing.T) {
	v := NewValidator(fakeSessions{"t": 1})
	fields := decode(t, `{"type":"get_events","user_id":99}`)

	_, params, err := v.Validate(fields, "t")
	require.NoError(t, err)
	assert.Equal(t, int64(1), params.UserID)
	assert.Len(t, fields, 2)
}
