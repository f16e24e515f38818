package webrequester

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergePerTargetOverrides(t *testing.T) {
	common := &Options{
		Method:  "POST",
		Data:    []byte("common-body"),
		Params:  map[string]string{"a": "1"},
		Headers: map[string]string{"X-Common": "c", "X-Shared": "s"},
		Timeout: TimeoutSeconds(30),
	}
	per := &Options{
		Headers: map[string]string{"X-Per": "p"},
		Timeout: TimeoutSeconds(5),
	}

	out := common.merge(per)

	assert.Equal(t, "POST", out.Method)
	assert.Equal(t, []byte("common-body"), out.Data)
	assert.Equal(t, map[string]string{"a": "1"}, out.Params)
	assert.Equal(t, 5*time.Second, out.Timeout.duration(0))

	// Header maps replace wholesale, they are not merged key by key.
	assert.Equal(t, map[string]string{"X-Per": "p"}, out.Headers)
}

func TestMergeNilInputs(t *testing.T) {
	var common *Options

	out := common.merge(&Options{Method: "put"})
	assert.Equal(t, "put", out.Method)

	out = common.merge(nil)
	assert.Equal(t, Options{}, out)
}

func TestMergeCopiesMutableState(t *testing.T) {
	follow := false
	common := &Options{
		Data:      []byte("body"),
		Params:    map[string]string{"p": "1"},
		Headers:   map[string]string{"h": "1"},
		Proxy:     ProxyURL("http://proxy.example:3128"),
		Transport: &TransportOptions{FollowRedirects: &follow},
	}

	out := common.merge(nil)

	out.Data[0] = 'X'
	out.Params["p"] = "mutated"
	out.Headers["h"] = "mutated"
	out.Transport.MaxRedirects = 99

	assert.Equal(t, []byte("body"), common.Data)
	assert.Equal(t, "1", common.Params["p"])
	assert.Equal(t, "1", common.Headers["h"])
	assert.Equal(t, 0, common.Transport.MaxRedirects)
	require.NotNil(t, out.Transport.FollowRedirects)
	assert.False(t, *out.Transport.FollowRedirects)
}

func TestTimeoutUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
		want    time.Duration
	}{
		{name: "number seconds", in: `5`, want: 5 * time.Second},
		{name: "fractional seconds", in: `1.5`, want: 1500 * time.Millisecond},
		{name: "digit string", in: `"5"`, want: 5 * time.Second},
		{name: "large digit string", in: `"300"`, want: 300 * time.Second},
		{name: "word disables the timeout", in: `"so-long"`, want: 0},
		{name: "negative string disables the timeout", in: `"-3"`, want: 0},
		{name: "null inherits", in: `null`, want: 42 * time.Second},
		{name: "bool rejected", in: `true`, wantErr: true},
		{name: "overflowing digit string rejected", in: `"99999999999999999999"`, wantErr: true},
	}

	const sessionDefault = 42 * time.Second
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tmo Timeout
			err := json.Unmarshal([]byte(tt.in), &tmo)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tmo.duration(sessionDefault))
		})
	}
}

func TestTimeoutResolution(t *testing.T) {
	const sessionDefault = 7 * time.Second

	assert.Equal(t, sessionDefault, Timeout{}.duration(sessionDefault))
	assert.Equal(t, time.Duration(0), NoTimeout().duration(sessionDefault))
	assert.Equal(t, 2*time.Second, TimeoutSeconds(2).duration(sessionDefault))
	assert.Equal(t, 300*time.Millisecond, TimeoutDuration(300*time.Millisecond).duration(sessionDefault))

	assert.True(t, Timeout{}.IsZero())
	assert.False(t, NoTimeout().IsZero())
}

func TestProxyUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantZero  bool
		wantHTTP  string
		wantHTTPS string
	}{
		{
			name:      "url string applies to both schemes",
			in:        `"http://proxy.example:3128"`,
			wantHTTP:  "http://proxy.example:3128",
			wantHTTPS: "http://proxy.example:3128",
		},
		{
			name:     "per-scheme object",
			in:       `{"http": "http://proxy.example:3128"}`,
			wantHTTP: "http://proxy.example:3128",
		},
		{
			name: "empty string still counts as configured",
			in:   `""`,
		},
		{
			name: "empty object still counts as configured",
			in:   `{}`,
		},
		{
			name:     "non-string entry discards the whole value",
			in:       `{"http": 42}`,
			wantZero: true,
		},
		{
			name:     "number discarded",
			in:       `42`,
			wantZero: true,
		},
		{
			name:     "array discarded",
			in:       `["http://proxy.example:3128"]`,
			wantZero: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Proxy
			require.NoError(t, json.Unmarshal([]byte(tt.in), &p))
			assert.Equal(t, tt.wantZero, p.IsZero())
			assert.Equal(t, tt.wantHTTP, p.ForScheme("http"))
			assert.Equal(t, tt.wantHTTPS, p.ForScheme("https"))
		})
	}
}

func TestProxyConstructors(t *testing.T) {
	assert.True(t, ProxyMap(nil).IsZero())
	assert.False(t, ProxyMap(map[string]string{}).IsZero())

	// An empty proxy URL is configured-but-blank: it proxies nothing and
	// keeps the request off the pooled transport.
	empty := ProxyURL("")
	assert.False(t, empty.IsZero())
	assert.Equal(t, "", empty.ForScheme("http"))

	p := ProxyURL("http://proxy.example:3128")
	assert.Equal(t, "http://proxy.example:3128", p.ForScheme("http"))
	assert.Equal(t, "http://proxy.example:3128", p.ForScheme("https"))

	entries := map[string]string{"http": "http://proxy.example:3128"}
	p = ProxyMap(entries)
	entries["http"] = "mutated"
	assert.Equal(t, "http://proxy.example:3128", p.ForScheme("http"))
}

func TestProxyFunc(t *testing.T) {
	p := ProxyMap(map[string]string{"http": "http://proxy.example:3128"})
	fn := p.proxyFunc()

	httpReq, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)
	u, err := fn(httpReq)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "proxy.example:3128", u.Host)

	httpsReq, err := http.NewRequest(http.MethodGet, "https://example.com/", nil)
	require.NoError(t, err)
	u, err = fn(httpsReq)
	require.NoError(t, err)
	assert.Nil(t, u)
}
