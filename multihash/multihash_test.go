package multihash

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestSum_KnownVectors(t *testing.T) {
	abc := []byte("ABC")
	cases := []struct {
		code Code
		hex  string
	}{
		{SHA1, "3c01bdbb26f358bab27f267924aa2c9a03fcfdb8"},
		{SHA2_256, "b5d4045c3f466fa91fe2cc6abe79232a1a57cdf104f7a26e716e0a1e2789df78"},
		{SHA2_512, "397118fdac8d83ad98813c50759c85b8c47565d8268bf10da483153b747a7474" +
			"3a58a90e85aa9f705ce6984ffc128db567489817e4092d050d8a1cc596ddc119"},
	}
	for _, tc := range cases {
		t.Run(tc.code.String(), func(t *testing.T) {
			digest := mustHex(t, tc.hex)
			want := append([]byte{byte(tc.code), byte(len(digest))}, digest...)

			got, err := Sum(abc, tc.code)
			require.NoError(t, err)
			require.Equal(t, want, []byte(got))
		})
	}
}

func TestSum_AllRegisteredLengths(t *testing.T) {
	for code, n := range Lengths {
		mh, err := Sum([]byte("payload"), code)
		require.NoError(t, err, code.String())
		require.Equal(t, n, len(mh.Digest()), code.String())
		require.Equal(t, code, mh.Code())
	}
}

func TestHash_Deterministic(t *testing.T) {
	for _, d := range [][]byte{nil, {}, []byte("a"), bytes.Repeat([]byte{0xff}, 4096)} {
		require.Equal(t, Hash(d), Hash(d))
		require.Equal(t, SHA2_256, Hash(d).Code())
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cases := []struct {
		code   Code
		digest string
	}{
		{SHA1, "a228821137dacdbcd3ba5fa264f918fda6223f7b"},
		{SHA2_256, "95071c8e1ad3c7a016b30fd25853c1d9e346ee7ee4afc977f554b139f71f4f30"},
		{SHA2_512, "3912d4c1777934091ed95a15278b351e00efa51f524af9af3320f0f6a227d551" +
			"76b1399684d15a05f03d1e519a9a9aa52a812a6d9bc63e5b485d6fd7ebf72114"},
	}
	for _, tc := range cases {
		digest := mustHex(t, tc.digest)
		mh, err := Encode(digest, tc.code)
		require.NoError(t, err)
		require.Equal(t, byte(tc.code), mh[0])
		require.Equal(t, byte(len(digest)), mh[1])

		dm, err := Decode(mh)
		require.NoError(t, err)
		require.Equal(t, tc.code, dm.Code)
		require.Equal(t, len(digest), dm.Length)
		require.Equal(t, digest, dm.Digest)
	}
}

func TestEncode_Errors(t *testing.T) {
	_, err := Encode(make([]byte, 128), SHA2_256)
	require.True(t, errors.Is(err, ErrDigestTooLong))

	_, err = Encode(make([]byte, 127), SHA2_256)
	require.NoError(t, err)

	_, err = Encode(make([]byte, 32), Code(0x99))
	require.True(t, errors.Is(err, ErrUnsupportedFunction))
}

func TestDecode_Errors(t *testing.T) {
	cases := map[string]struct {
		in   []byte
		want error
	}{
		"empty":         {nil, ErrInvalidMultihash},
		"one byte":      {[]byte{0x12}, ErrInvalidMultihash},
		"unknown code":  {[]byte{0x99, 0x00}, ErrUnsupportedFunction},
		"truncated":     {[]byte{0x12, 0x20, 0x01}, ErrInvalidMultihash},
		"trailing data": {[]byte{0x11, 0x01, 0x01, 0x02}, ErrInvalidMultihash},
		"length > 127":  {append([]byte{0x12, 0x80}, make([]byte, 128)...), ErrDigestTooLong},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(tc.in)
			require.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestStringForms_RoundTrip(t *testing.T) {
	mh := Hash([]byte("hello"))

	fromHex, err := FromHexString(mh.HexString())
	require.NoError(t, err)
	require.True(t, mh.Equal(fromHex))

	fromB58, err := FromB58String(mh.B58String())
	require.NoError(t, err)
	require.True(t, mh.Equal(fromB58))

	require.Equal(t, mh.B58String(), mh.String())
	require.Equal(t, "1220", mh.HexString()[:4])
	// sha2-256 multihashes render as the familiar Qm... prefix.
	require.Equal(t, "Qm", mh.B58String()[:2])
}

func TestStringForms_Invalid(t *testing.T) {
	_, err := FromHexString("zz")
	require.True(t, errors.Is(err, ErrInvalidMultihash))

	_, err = FromB58String("0OIl")
	require.True(t, errors.Is(err, ErrInvalidMultihash))
}

func TestCodeByName(t *testing.T) {
	for code, name := range names {
		got, err := CodeByName(name)
		require.NoError(t, err)
		require.Equal(t, code, got)
	}
	_, err := CodeByName("md5")
	require.True(t, errors.Is(err, ErrUnsupportedFunction))
}
