package inscription

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"testing"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/ordinals-go/tx"
)

func testAddress(t *testing.T) string {
	t.Helper()
	key, err := ec.NewPrivateKey()
	require.NoError(t, err)
	addr, err := tx.AddressForKey(key, false)
	require.NoError(t, err)
	return addr
}

// --- Envelope ---

func TestLock_EnvelopeLayout(t *testing.T) {
	addr := testAddress(t)
	insc := &Inscription{Data: []byte("hello, inscribed!"), ContentType: "text/plain"}
	require.Len(t, insc.Data, 17)

	s, err := Lock(addr, insc, nil)
	require.NoError(t, err)

	p2pkh, err := tx.P2PKHScript(addr)
	require.NoError(t, err)

	var want []byte
	want = append(want, 0x00, 0x63, 0x03, 'o', 'r', 'd', 0x51, 0x0a)
	want = append(want, []byte("text/plain")...)
	want = append(want, 0x00, 0x11)
	want = append(want, insc.Data...)
	want = append(want, 0x68)
	want = append(want, *p2pkh...)
	assert.Equal(t, want, s.Bytes())
}

func TestLock_NoInscriptionIsPlainP2PKH(t *testing.T) {
	addr := testAddress(t)
	s, err := Lock(addr, nil, nil)
	require.NoError(t, err)
	p2pkh, err := tx.P2PKHScript(addr)
	require.NoError(t, err)
	assert.Equal(t, p2pkh.Bytes(), s.Bytes())
	assert.True(t, s.IsP2PKH())
}

func TestLock_Deterministic(t *testing.T) {
	addr := testAddress(t)
	insc := &Inscription{Data: []byte{0x01, 0x02, 0x03}, ContentType: "application/octet-stream"}
	meta := Metadata{{"app", "test"}, {"type", "ord"}, {"name", "x"}, {"collection", "y"}}

	a, err := Lock(addr, insc, meta)
	require.NoError(t, err)
	b, err := Lock(addr, insc, meta)
	require.NoError(t, err)
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestLock_InvalidInscription(t *testing.T) {
	addr := testAddress(t)
	tests := []struct {
		name string
		insc *Inscription
	}{
		{"empty data", &Inscription{ContentType: "text/plain"}},
		{"empty content type", &Inscription{Data: []byte("x")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Lock(addr, tc.insc, nil)
			assert.ErrorIs(t, err, tx.ErrScript)
		})
	}
}

func TestLock_InvalidAddress(t *testing.T) {
	_, err := Lock("bogus", nil, nil)
	assert.ErrorIs(t, err, tx.ErrInvalidAddress)
}

func TestParse_RoundTrip(t *testing.T) {
	addr := testAddress(t)
	tests := []struct {
		name string
		data []byte
		ct   string
	}{
		{"small text", []byte("hi"), "text/plain;charset=utf-8"},
		{"single byte", []byte{0x07}, "application/octet-stream"},
		{"pushdata1", bytes.Repeat([]byte{0xab}, 200), "image/png"},
		{"pushdata2", bytes.Repeat([]byte{0xcd}, 1000), "image/webp"},
		{"json", []byte(`{"p":"bsv-20","op":"transfer"}`), "application/bsv-20"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Lock(addr, &Inscription{Data: tc.data, ContentType: tc.ct},
				Metadata{{"app", "a"}, {"type", "b"}})
			require.NoError(t, err)

			got, err := Parse(s)
			require.NoError(t, err)
			assert.Equal(t, tc.data, got.Data)
			assert.Equal(t, tc.ct, got.ContentType)
		})
	}
}

func TestParse_NoEnvelope(t *testing.T) {
	s, err := Lock(testAddress(t), nil, nil)
	require.NoError(t, err)
	_, err = Parse(s)
	assert.ErrorIs(t, err, ErrNoInscription)
}

func TestParse_Truncated(t *testing.T) {
	s := &script.Script{}
	require.NoError(t, s.AppendOpcodes(script.Op0, script.OpIF))
	require.NoError(t, s.AppendPushData([]byte("ord")))
	require.NoError(t, s.AppendOpcodes(script.Op1))
	_, err := Parse(s)
	assert.ErrorIs(t, err, tx.ErrScript)
}

func TestFromBase64(t *testing.T) {
	insc, err := FromBase64(base64.StdEncoding.EncodeToString([]byte("payload")), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), insc.Data)

	_, err = FromBase64("!!!", "text/plain")
	assert.ErrorIs(t, err, tx.ErrValidation)

	_, err = FromBase64("", "text/plain")
	assert.ErrorIs(t, err, tx.ErrScript)
}

// --- MAP metadata ---

func TestMetadata_RequiredKeys(t *testing.T) {
	_, err := Lock(testAddress(t), nil, Metadata{{"app", "x"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMetadataKeys)
	assert.ErrorIs(t, err, tx.ErrValidation)
	assert.Contains(t, err.Error(), "MAP.app and MAP.type are required")
}

func TestMetadata_Pairs(t *testing.T) {
	m := Metadata{{"type", "ord"}, {"zeta", "1"}, {"cmd", "DEL"}, {"app", "x"}, {"alpha", "2"}}
	assert.Equal(t, []Pair{{"type", "ord"}, {"zeta", "1"}, {"app", "x"}, {"alpha", "2"}}, m.Pairs())
	assert.Nil(t, Metadata(nil).Pairs())
}

func TestMetadata_GetSet(t *testing.T) {
	var m Metadata
	m.Set("app", "x")
	m.Set("type", "ord")
	m.Set("app", "y")
	assert.Equal(t, Metadata{{"app", "y"}, {"type", "ord"}}, m)
	assert.Equal(t, "ord", m.Get("type"))
	assert.Equal(t, "", m.Get("name"))
	assert.NoError(t, m.Validate())
}

func TestMetadata_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Metadata
		wantErr bool
	}{
		{"document order", `{"type":"ord","app":"x","zeta":"1","alpha":"2"}`,
			Metadata{{"type", "ord"}, {"app", "x"}, {"zeta", "1"}, {"alpha", "2"}}, false},
		{"non-string values", `{"app":"x","type":"ord","n":3,"tags":["a", "b"],"ok":true}`,
			Metadata{{"app", "x"}, {"type", "ord"}, {"n", "3"}, {"tags", `["a","b"]`}, {"ok", "true"}}, false},
		{"duplicate key keeps first position", `{"app":"x","type":"ord","app":"y"}`,
			Metadata{{"app", "y"}, {"type", "ord"}}, false},
		{"null", `null`, nil, false},
		{"empty object", `{}`, Metadata{}, false},
		{"array", `["app"]`, nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var m Metadata
			err := json.Unmarshal([]byte(tc.in), &m)
			if tc.wantErr {
				assert.ErrorIs(t, err, tx.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, m)
		})
	}
}

func TestMetadata_Layout(t *testing.T) {
	addr := testAddress(t)
	s, err := Lock(addr, nil, Metadata{{"app", "ap"}, {"cmd", "ignored"}, {"type", "ty"}})
	require.NoError(t, err)

	p2pkh, err := tx.P2PKHScript(addr)
	require.NoError(t, err)

	want := append([]byte{}, *p2pkh...)
	want = append(want, 0x6a, byte(len(MapPrefix)))
	want = append(want, []byte(MapPrefix)...)
	want = append(want, 0x03, 'S', 'E', 'T')
	want = append(want, 0x03, 'a', 'p', 'p', 0x02, 'a', 'p')
	want = append(want, 0x04, 't', 'y', 'p', 'e', 0x02, 't', 'y')
	assert.Equal(t, want, s.Bytes())
}

func TestParseMetadata_RoundTrip(t *testing.T) {
	meta := Metadata{{"app", "gallery"}, {"type", "ord"}, {"name", "Piece #1"}}
	s, err := Lock(testAddress(t), &Inscription{Data: []byte("x"), ContentType: "text/plain"}, meta)
	require.NoError(t, err)

	got, err := ParseMetadata(s)
	require.NoError(t, err)
	assert.Equal(t, meta, got)
}

func TestParseMetadata_KeepsCallerOrder(t *testing.T) {
	meta := Metadata{{"type", "ord"}, {"zeta", "1"}, {"app", "gallery"}, {"cmd", "DEL"}, {"alpha", "2"}}
	s, err := Lock(testAddress(t), nil, meta)
	require.NoError(t, err)

	got, err := ParseMetadata(s)
	require.NoError(t, err)
	assert.Equal(t, Metadata{{"type", "ord"}, {"zeta", "1"}, {"app", "gallery"}, {"alpha", "2"}}, got)
}

func TestParseMetadata_None(t *testing.T) {
	s, err := Lock(testAddress(t), nil, nil)
	require.NoError(t, err)
	_, err = ParseMetadata(s)
	assert.ErrorIs(t, err, ErrNoMetadata)
}

// --- Unlock ---

func TestUnlock(t *testing.T) {
	key, err := ec.NewPrivateKey()
	require.NoError(t, err)
	u, err := Unlock(key)
	require.NoError(t, err)
	assert.Equal(t, uint32(106), u.EstimateLength(nil, 0))

	_, err = Unlock(nil)
	assert.ErrorIs(t, err, tx.ErrSigning)
}
