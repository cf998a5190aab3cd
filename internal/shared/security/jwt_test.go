package security

import "testing"

func TestAward_缺少JWT_SECRET应失败(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Award("user_ana", "Ana"); err == nil {
		t.Fatalf("期望 JWT_SECRET 为空时 Award 返回错误")
	}
}

func TestAwardParse_正常签发并解析(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-123")

	token, err := Award("user_ana_silva", "Ana Silva")
	if err != nil {
		t.Fatalf("Award err=%v", err)
	}
	if token == "" {
		t.Fatalf("期望 token 非空")
	}

	_, claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken err=%v", err)
	}
	if claims == nil || claims.PlayerID != "user_ana_silva" || claims.Subject != "user_ana_silva" {
		t.Fatalf("期望 claims.PlayerID==user_ana_silva, got=%v", claims)
	}
}

func TestParseToken_换密钥后失效(t *testing.T) {
	t.Setenv("JWT_SECRET", "one")
	token, err := Award("user_x", "x")
	if err != nil {
		t.Fatalf("Award err=%v", err)
	}
	t.Setenv("JWT_SECRET", "two")
	if _, _, err := ParseToken(token); err == nil {
		t.Fatalf("期望签名校验失败")
	}
}
