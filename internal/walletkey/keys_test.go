package walletkey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	kp, err := NewKeyPair()
	require.NoError(t, err)

	data := []byte("instruction||fingerprint||fee")
	sig := kp.Sign(data)
	require.False(t, sig.IsZero())
	require.True(t, Verify(kp.Account(), data, sig))
}

func TestVerifyRejectsTamperedData(t *testing.T) {
	kp, err := NewKeyPair()
	require.NoError(t, err)

	sig := kp.Sign([]byte("original"))
	require.False(t, Verify(kp.Account(), []byte("tampered"), sig))
}

func TestVerifyRejectsWrongAccount(t *testing.T) {
	kp1, err := NewKeyPair()
	require.NoError(t, err)
	kp2, err := NewKeyPair()
	require.NoError(t, err)

	data := []byte("payload")
	sig := kp1.Sign(data)
	require.False(t, Verify(kp2.Account(), data, sig))
}

func TestAccountIsFixedWidth(t *testing.T) {
	kp, err := NewKeyPair()
	require.NoError(t, err)
	acc := kp.Account()
	require.Len(t, acc[:], AccountSize)
}
