// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Request/Response objects: lazily-built body reader pipeline;
// response writer with deferred header emission and filter chain
// assembly (spec §2.3, §3).
package brisk

import (
	"bufio"
	"crypto/x509"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/brisk-http/brisk/httpwire"
	"github.com/brisk-http/brisk/session"
	"github.com/brisk-http/brisk/streamio"
)

// UploadedFile is one file part drained by parseFormBody, with its
// temporary storage location; finalize deletes it (spec §4.5).
type UploadedFile struct {
	FieldName string
	FileName  string
	TempPath  string
	Size      int64
}

// Request is the per-request object spec §3 describes. Once bodyReader
// is first observed it remains the same object (spec §3 invariant).
type Request struct {
	arena *arena

	Method     string
	RequestURL string // raw
	Version    string // "HTTP/1.0", "HTTP/1.1", or "HTTP/2"
	Headers    *httpwire.HeaderMap

	Path     string
	Query    string
	Username string
	Password string
	queryForm url.Values

	Cookies *httpwire.CookieMultimap

	jsonValue    any
	jsonParsed   bool
	form         url.Values
	formParsed   bool
	uploadedFiles []*UploadedFile

	PeerAddr  string
	IsTLS     bool
	PeerCert  *x509.Certificate

	Session *session.Session

	TimeCreated time.Time

	ctx *ServerContext

	bodyReaderOnce io.Reader
	bodyBuilt      bool
	rawReader      *bufio.Reader
	transport      io.Reader
	contentLength  int64 // -1 unknown/absent, -2 chunked
	bodyErr        error

	h2 *h2StreamFacade // set only for HTTP/2 requests
}

func (r *Request) elapsed() time.Duration { return time.Since(r.TimeCreated) }

// H returns the first value of header name, matching the teacher's
// terse single-letter accessor convention for the hottest path
// (hemi/web_codec.go's webIn_.H).
func (r *Request) H(name string) string { return r.Headers.Get(name) }

// Header returns (value, ok) for name.
func (r *Request) Header(name string) (string, bool) {
	v := r.Headers.Get(name)
	return v, v != "" || r.Headers.Has(name)
}

// QueryValue returns the first value of the URL query parameter name.
func (r *Request) QueryValue(name string) string {
	if r.queryForm == nil {
		return ""
	}
	return r.queryForm.Get(name)
}

// Cookie returns the first value seen for a cookie named name (first
// insertion order wins, per spec §4.3).
func (r *Request) Cookie(name string) (string, bool) {
	if r.Cookies == nil {
		return "", false
	}
	return r.Cookies.Get(name)
}

// FormValue returns the first value of a drained multipart/urlencoded
// form field named name.
func (r *Request) FormValue(name string) string {
	r.ensureFormParsed()
	if r.form == nil {
		return ""
	}
	return r.form.Get(name)
}

// UploadedFiles returns every file part drained from a multipart body.
func (r *Request) UploadedFiles() []*UploadedFile {
	r.ensureFormParsed()
	return r.uploadedFiles
}

// BindJSON decodes the JSON request body into v. It is idempotent: the
// parsed value is cached on first call (spec §3: "parsed JSON
// (optional)").
func (r *Request) BindJSON(v any) error {
	if err := r.ensureJSONParsed(); err != nil {
		return err
	}
	raw, err := json.Marshal(r.jsonValue)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// JSON returns the parsed JSON body as a generic any (map/slice/etc).
func (r *Request) JSON() (any, error) {
	if err := r.ensureJSONParsed(); err != nil {
		return nil, err
	}
	return r.jsonValue, nil
}

func (r *Request) ensureJSONParsed() error {
	if r.jsonParsed {
		return r.bodyErr
	}
	r.jsonParsed = true
	body := r.BodyReader()
	data, err := io.ReadAll(body)
	if err != nil {
		r.bodyErr = err
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, &r.jsonValue)
}

func (r *Request) ensureFormParsed() {
	if r.formParsed {
		return
	}
	r.formParsed = true
	contentType := r.H("Content-Type")
	mediaType, params, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "application/x-www-form-urlencoded":
		data, err := io.ReadAll(r.BodyReader())
		if err != nil {
			r.bodyErr = err
			return
		}
		values, err := url.ParseQuery(string(data))
		if err == nil {
			r.form = values
		}
	case "multipart/form-data":
		boundary := params["boundary"]
		if boundary == "" {
			return
		}
		r.form = url.Values{}
		mr := multipart.NewReader(r.BodyReader(), boundary)
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				r.bodyErr = err
				break
			}
			name := part.FormName()
			if part.FileName() == "" {
				data, _ := io.ReadAll(part)
				r.form.Add(name, string(data))
				continue
			}
			uploaded := r.arena.spoolUpload(part)
			uploaded.FieldName = name
			uploaded.FileName = part.FileName()
			r.uploadedFiles = append(r.uploadedFiles, uploaded)
		}
	}
}

// applyParseOptions implements the per-request option-flag processing
// of spec §4.3.
func (r *Request) applyParseOptions(opts Options) {
	if opts.has(ParseURL) || opts.has(ParseQueryString) {
		r.parseURL()
	}
	if opts.has(ParseQueryString) {
		r.queryForm, _ = url.ParseQuery(r.Query)
	}
	if opts.has(ParseCookies) {
		if cookieHeader := r.H("Cookie"); cookieHeader != "" {
			r.Cookies = httpwire.ParseCookieHeader(cookieHeader)
		} else {
			r.Cookies = httpwire.NewCookieMultimap()
		}
	}
}

func (r *Request) parseURL() {
	u := r.RequestURL
	if i := strings.IndexByte(u, '?'); i >= 0 {
		r.Query = u[i+1:]
		u = u[:i]
	}
	if decoded, err := url.PathUnescape(u); err == nil {
		r.Path = decoded
	} else {
		r.Path = u
	}
	if parsed, err := url.Parse(r.RequestURL); err == nil && parsed.User != nil {
		r.Username = parsed.User.Username()
		r.Password, _ = parsed.User.Password()
	}
}

// BodyReader assembles (once) the filter chain spec §4.3a describes
// and returns it. Subsequent calls return the same object.
func (r *Request) BodyReader() io.Reader {
	if r.bodyBuilt {
		return r.bodyReaderOnce
	}
	r.bodyBuilt = true
	r.bodyReaderOnce = r.buildBodyReader()
	return r.bodyReaderOnce
}

func (r *Request) buildBodyReader() io.Reader {
	var base io.Reader
	switch {
	case r.contentLength >= 0:
		if r.ctx != nil && r.contentLength > r.ctx.Settings.MaxRequestBodySize {
			r.bodyErr = NewHTTPStatusException(413, "Request Entity Too Large")
			base = streamio.NewLimitedReader(r.transport, 0)
		} else {
			base = streamio.NewLimitedReader(r.transport, r.contentLength)
		}
	case r.contentLength == -2: // chunked
		chunked := streamio.NewChunkReader(r.rawReader)
		cap := int64(10 << 20)
		if r.ctx != nil {
			cap = r.ctx.Settings.MaxRequestBodySize
		}
		base = streamio.NewCappedReader(chunked, cap)
	default:
		base = streamio.NewLimitedReader(r.transport, 0)
	}
	if r.ctx != nil && r.ctx.Settings.MaxRequestTime > 0 {
		base = streamio.NewTimeoutReader(base, r.TimeCreated, r.ctx.Settings.MaxRequestTime)
	}
	return base
}

// drainBody discards any unread request body bytes, matching spec
// §4.3: "the protocol requires the transport be left aligned".
func (r *Request) drainBody() {
	io.Copy(io.Discard, r.BodyReader())
}

func parseContentLength(headers *httpwire.HeaderMap) (int64, error) {
	if headers.Has("Transfer-Encoding") {
		for _, v := range httpwire.CommaList(headers.Get("Transfer-Encoding")) {
			if strings.EqualFold(v, "chunked") {
				return -2, nil
			}
		}
	}
	raw := headers.Get("Content-Length")
	if raw == "" {
		return -1, nil
	}
	n, err := strconv.ParseInt(raw, 10, 63)
	if err != nil || n < 0 {
		return -1, NewHTTPStatusException(400, "Bad Request", "malformed Content-Length")
	}
	return n, nil
}
