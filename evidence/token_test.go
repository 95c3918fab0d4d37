package evidence

import "testing"

func testFields() TokenFields {
	return TokenFields{
		SliceID:           "slice1",
		AnchorUUID:        "anchor1",
		PolicyID:          "p1",
		PolicyParamsHash:  "hash1",
		GraphSnapshotHash: "snap1",
		SchemaVersion:     SchemaVersion,
	}
}

func TestIssueTokenDeterministicLength(t *testing.T) {
	tok, err := IssueToken(testSecret, testFields())
	if err != nil {
		t.Fatal(err)
	}
	if len(tok) != 32 {
		t.Fatalf("expected 32 hex chars, got %d: %s", len(tok), tok)
	}
	tok2, _ := IssueToken(testSecret, testFields())
	if tok != tok2 {
		t.Fatalf("token not deterministic: %s vs %s", tok, tok2)
	}
}

func TestIssueTokenSensitiveToEachField(t *testing.T) {
	base := testFields()
	baseTok, _ := IssueToken(testSecret, base)

	variants := []TokenFields{base, base, base, base, base, base}
	variants[0].SliceID = "other"
	variants[1].AnchorUUID = "other"
	variants[2].PolicyID = "other"
	variants[3].PolicyParamsHash = "other"
	variants[4].GraphSnapshotHash = "other"
	variants[5].SchemaVersion = "other"

	for i, v := range variants {
		tok, _ := IssueToken(testSecret, v)
		if tok == baseTok {
			t.Errorf("variant %d did not change the token", i)
		}
	}
}

func TestVerifyTokenRoundTrip(t *testing.T) {
	fields := testFields()
	tok, err := IssueToken(testSecret, fields)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := VerifyToken(testSecret, tok, fields)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected token to verify")
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	fields := testFields()
	tok, _ := IssueToken(testSecret, fields)
	ok, err := VerifyToken([]byte("different-secret"), tok, fields)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected token to fail verification under a different secret")
	}
}

func TestVerifyTokenRejectsMalformedFormat(t *testing.T) {
	_, err := VerifyToken(testSecret, "not-hex-and-wrong-length", testFields())
	if err == nil {
		t.Fatal("expected malformed token format to error")
	}
}

func TestVerifyTokenRejectsWrongCaseLength(t *testing.T) {
	fields := testFields()
	tok, _ := IssueToken(testSecret, fields)
	_, err := VerifyToken(testSecret, tok+"AB", fields)
	if err == nil {
		t.Fatal("expected oversized token to fail format validation")
	}
}
