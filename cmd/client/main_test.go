package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/calendar/internal/client"
)

func TestRepl(t *testing.T) {
	var types []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		typ, _ := body["type"].(string)
		types = append(types, typ)

		switch typ {
		case "login":
			_, _ = w.Write([]byte(`{"SESSION_ID":"t"}`))
		case "get_events":
			_, _ = w.Write([]byte(`[{"id":1,"owner":1,"name":"gym","date":"20250102","time":"1800","duration":60}]`))
		case "get_username":
			w.WriteHeader(http.StatusNotFound)
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	c, err := client.New(srv.URL, nil)
	require.NoError(t, err)

	in := strings.NewReader(strings.Join([]string{
		"",
		"help",
		"register alice",
		"register alice pw",
		"login alice pw",
		"add gym 20250102 1800 soon",
		"add gym 20250102 1800 60",
		"list",
		"whoami",
		"dance",
		"exit",
		"list",
	}, "\n"))
	var out bytes.Buffer
	repl(context.Background(), c, in, &out)

	got := out.String()
	assert.Contains(t, got, "Available commands")
	assert.Contains(t, got, "Usage: register <login> <password>")
	assert.Contains(t, got, "Registered")
	assert.Contains(t, got, "Logged in")
	assert.Contains(t, got, "Duration must be a whole number of minutes")
	assert.Contains(t, got, "Event saved")
	assert.Contains(t, got, "20250102 1800  gym (60 min)")
	assert.Contains(t, got, "status 404")
	assert.Contains(t, got, "Unknown command")
	assert.True(t, strings.HasSuffix(got, "Bye\n"))

	assert.Equal(t, []string{"register", "login", "save_event", "get_events", "get_username"}, types)
}
