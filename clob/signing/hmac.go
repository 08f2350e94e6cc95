package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// decodeSigningSecret 解码 API 密钥的 secret。
// 服务端下发的 secret 可能是标准 base64 或 base64url，两种都接受。
func decodeSigningSecret(secret string) ([]byte, error) {
	cleaned := strings.TrimSpace(secret)
	if b, err := base64.StdEncoding.DecodeString(cleaned); err == nil {
		return b, nil
	}
	if b, err := base64.URLEncoding.DecodeString(cleaned); err == nil {
		return b, nil
	}
	return nil, fmt.Errorf("secret 不是合法的 base64/base64url")
}

// BuildPolyHmacSignature 计算 L2 请求签名：
// HMAC-SHA256(secret, timestamp + method + path + body)，
// 输出 base64url（保留 = 填充），与服务端校验格式一致。
func BuildPolyHmacSignature(secret string, timestamp int64, method string, requestPath string, body *string) (string, error) {
	key, err := decodeSigningSecret(secret)
	if err != nil {
		return "", err
	}

	var msg strings.Builder
	msg.WriteString(strconv.FormatInt(timestamp, 10))
	msg.WriteString(method)
	msg.WriteString(requestPath)
	if body != nil {
		msg.WriteString(*body)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg.String()))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}
