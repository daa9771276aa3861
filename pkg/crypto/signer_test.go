package crypto

import (
	"bytes"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func keccak256ForTest(message []byte) []byte {
	return ethcrypto.Keccak256Hash(message).Bytes()
}

func TestGenerateKeyAndSignRoundTrip(t *testing.T) {
	signer, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	message := []byte("limit order payload")
	sig, err := signer.SignMessage(message)
	if err != nil {
		t.Fatalf("SignMessage failed: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("expected 65-byte signature, got %d", len(sig))
	}

	hash := keccak256ForTest(message)
	if !VerifySignature(signer.Address(), hash, sig) {
		t.Fatal("expected signature to verify against signer address")
	}

	recovered, err := RecoverAddress(hash, sig)
	if err != nil {
		t.Fatalf("RecoverAddress failed: %v", err)
	}
	if recovered != signer.Address() {
		t.Fatalf("expected recovered address %s, got %s", signer.Address(), recovered)
	}
}

func TestFromPrivateKeyHexReproducesAddress(t *testing.T) {
	original, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	reloaded, err := FromPrivateKeyHex(original.PrivateKeyHex())
	if err != nil {
		t.Fatalf("FromPrivateKeyHex failed: %v", err)
	}
	if reloaded.Address() != original.Address() {
		t.Fatalf("expected address %s, got %s", original.Address(), reloaded.Address())
	}
}

func TestVerifySignatureRejectsWrongAddress(t *testing.T) {
	signer, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	other, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	message := []byte("order")
	sig, err := signer.SignMessage(message)
	if err != nil {
		t.Fatalf("SignMessage failed: %v", err)
	}
	hash := keccak256ForTest(message)

	if VerifySignature(other.Address(), hash, sig) {
		t.Fatal("expected verification against the wrong address to fail")
	}
}

func TestSignatureToRSVRoundTrip(t *testing.T) {
	signer, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	hash := keccak256ForTest([]byte("order"))
	sig, err := signer.Sign(hash)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	r, s, v, err := SignatureToRSV(sig)
	if err != nil {
		t.Fatalf("SignatureToRSV failed: %v", err)
	}
	rebuilt := RSVToSignature(r, s, v)
	if !bytes.Equal(rebuilt, sig) {
		t.Fatalf("expected RSV round trip to reproduce signature, want %x got %x", sig, rebuilt)
	}
}

func TestEIP55ChecksumsKnownAddress(t *testing.T) {
	signer, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	addr := signer.Address()

	checksummed := EIP55(addr.Bytes())
	if checksummed != addr.Hex() {
		t.Fatalf("expected EIP55(%x) to match go-ethereum's Hex() %s, got %s", addr.Bytes(), addr.Hex(), checksummed)
	}
}

func TestGenerateNonceProducesDistinctValues(t *testing.T) {
	a, err := GenerateNonce()
	if err != nil {
		t.Fatalf("GenerateNonce failed: %v", err)
	}
	b, err := GenerateNonce()
	if err != nil {
		t.Fatalf("GenerateNonce failed: %v", err)
	}
	if a == b {
		t.Fatal("expected two generated nonces to differ (birthday collision is astronomically unlikely)")
	}
}
