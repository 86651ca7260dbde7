package protocol

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Trinoooo/eventqueue/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayRequestBytes(t *testing.T) {
	req := NewDelayRequest(5*time.Second, "request-0")
	assert.Equal(t, "/5000/request-0", req.Path())
	assert.Equal(t,
		"GET /5000/request-0 HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n\r\n",
		string(req.Bytes()))
}

func TestReadDelayRequest(t *testing.T) {
	origin := NewDelayRequest(1500*time.Millisecond, "request-3")
	req, err := ReadDelayRequest(bytes.NewReader(origin.Bytes()))
	require.Nil(t, err)
	assert.Equal(t, origin, req)
}

func TestParsePath(t *testing.T) {
	testCases := []struct {
		path  string
		delay time.Duration
		name  string
		code  int64
	}{
		{path: "/0/", delay: 0, name: ""},
		{path: "/200", delay: 200 * time.Millisecond, name: ""},
		{path: "/10/a/b", delay: 10 * time.Millisecond, name: "a/b"},
		{path: "/abc/x", code: errs.ParseRequestErrCode},
		{path: "/-1/x", code: errs.ParseRequestErrCode},
		{path: "/", code: errs.ParseRequestErrCode},
		{path: "/9223372036854/x", delay: 9223372036854 * time.Millisecond, name: "x"},
		{path: "/9223372036855/x", code: errs.ParseRequestErrCode},
		{path: "/9223372036854775807/x", code: errs.ParseRequestErrCode},
	}

	for _, testCase := range testCases {
		req, err := ParsePath(testCase.path)
		if testCase.code != 0 {
			assert.Equal(t, testCase.code, errs.GetCode(err), testCase.path)
			continue
		}
		require.Nil(t, err, testCase.path)
		assert.Equal(t, testCase.delay, req.Delay, testCase.path)
		assert.Equal(t, testCase.name, req.Name, testCase.path)
	}
}

func TestReadDelayRequestMalformed(t *testing.T) {
	_, err := ReadDelayRequest(strings.NewReader("garbage\r\n\r\n"))
	assert.Equal(t, int64(errs.ParseRequestErrCode), errs.GetCode(err))

	_, err = ReadDelayRequest(strings.NewReader("POST /1/x HTTP/1.1\r\nHost: a\r\n\r\n"))
	assert.Equal(t, int64(errs.ParseRequestErrCode), errs.GetCode(err))
}

func TestNewResponse(t *testing.T) {
	resp := string(NewResponse(200, "request-1"))
	assert.True(t, strings.HasPrefix(resp, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, resp, "Content-Length: 9\r\n")
	assert.Contains(t, resp, "Connection: close\r\n")
	assert.True(t, strings.HasSuffix(resp, "\r\n\r\nrequest-1"))
}
