// Package storeapi 是 gate 与 world 之间的存储 RPC 契约。
//
// 消息直接复用领域类型，用 JSON 编解码（content-subtype "json"），不走 protobuf 生成代码。
package storeapi

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName 是注册到 grpc 的 content-subtype。
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
