package protocol

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Trinoooo/eventqueue/errs"
	"github.com/pkg/errors"
)

// DelayRequest GET /{delay 毫秒}/{name}
type DelayRequest struct {
	Delay time.Duration
	Name  string
}

// Path 请求路径，delay 按毫秒截断
func (dr *DelayRequest) Path() string {
	return fmt.Sprintf("/%d/%s", dr.Delay.Milliseconds(), dr.Name)
}

// Bytes 编码成一个完整的 HTTP/1.1 请求，服务端回复后会关闭连接
func (dr *DelayRequest) Bytes() []byte {
	return []byte(fmt.Sprintf("GET %s HTTP/1.1\r\n"+
		"Host: localhost\r\n"+
		"Connection: close\r\n"+
		"\r\n", dr.Path()))
}

func NewDelayRequest(delay time.Duration, name string) *DelayRequest {
	return &DelayRequest{Delay: delay, Name: name}
}

// maxDelayMillis 换算成 time.Duration 不溢出的最大毫秒数
const maxDelayMillis = math.MaxInt64 / int64(time.Millisecond)

// ParsePath 解析 /{delay}/{name}，name 可以为空
func ParsePath(path string) (*DelayRequest, error) {
	segments := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)
	ms, err := strconv.ParseInt(segments[0], 10, 64)
	if err != nil {
		return nil, errs.NewParseRequestErr().WithErr(errors.Wrapf(err, "path %q", path))
	}
	if ms < 0 || ms > maxDelayMillis {
		return nil, errs.NewParseRequestErr().WithErr(errors.Errorf("delay out of range in path %q", path))
	}

	req := &DelayRequest{Delay: time.Duration(ms) * time.Millisecond}
	if len(segments) == 2 {
		req.Name = segments[1]
	}
	return req, nil
}

// ReadDelayRequest 从阻塞连接中读出一个请求
func ReadDelayRequest(r io.Reader) (*DelayRequest, error) {
	req, err := http.ReadRequest(bufio.NewReader(r))
	if err != nil {
		return nil, errs.NewParseRequestErr().WithErr(err)
	}
	defer req.Body.Close()

	if req.Method != http.MethodGet {
		return nil, errs.NewParseRequestErr().WithErr(errors.Errorf("unexpected method %s", req.Method))
	}
	return ParsePath(req.URL.Path)
}

// NewResponse 带 Content-Length 的响应，Connection: close
func NewResponse(status int, body string) []byte {
	return []byte(fmt.Sprintf("HTTP/1.1 %d %s\r\n"+
		"Content-Type: text/plain\r\n"+
		"Content-Length: %d\r\n"+
		"Connection: close\r\n"+
		"\r\n"+
		"%s", status, http.StatusText(status), len(body), body))
}
