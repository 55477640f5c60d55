package share

import (
	"bytes"
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintDecode(t *testing.T) {
	token := Mint(12)

	decoded, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, 12, decoded.SurveyID)
	assert.Len(t, decoded.Nonce, 36)

	assert.NotEqual(t, token, Mint(12))
}

func TestDecode(t *testing.T) {
	testCases := []struct {
		name    string
		token   string
		wantID  int
		wantErr bool
	}{
		{
			name:   "std base64 numeric id",
			token:  base64.StdEncoding.EncodeToString([]byte(`{"id":3,"uuid":"u"}`)),
			wantID: 3,
		},
		{
			name:   "url base64 string id",
			token:  base64.RawURLEncoding.EncodeToString([]byte(`{"id":"44","uuid":"u?>"}`)),
			wantID: 44,
		},
		{name: "empty", token: "", wantErr: true},
		{name: "not base64", token: "%%%", wantErr: true},
		{name: "not json", token: base64.StdEncoding.EncodeToString([]byte("hello")), wantErr: true},
		{
			name:    "missing id",
			token:   base64.StdEncoding.EncodeToString([]byte(`{"uuid":"u"}`)),
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			decoded, err := Decode(tc.token)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidShareLink)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantID, decoded.SurveyID)
		})
	}
}

func TestVerify(t *testing.T) {
	token := Mint(5)

	require.NoError(t, Verify(token, 5))

	err := Verify(token, 6)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidShareLink)
}

func TestLink(t *testing.T) {
	token := Mint(5)

	link := Link("http://localhost:5173/", 5, token)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/survey/5", parsed.Path)
	assert.Equal(t, token, parsed.Query().Get("share"))

	assert.Equal(t, "http://x/survey/5", Link("http://x", 5, ""))
}

func TestQR(t *testing.T) {
	link := Link("http://x", 1, "abc=")

	imageURL, err := url.Parse(QRImageURL(link))
	require.NoError(t, err)
	assert.Equal(t, "400x400", imageURL.Query().Get("size"))
	assert.Equal(t, link, imageURL.Query().Get("data"))

	png, err := QRCode(link)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
