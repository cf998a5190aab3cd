package ws

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzip"
)

// encodeFrame 把响应体编码为一帧；压缩帧必须走 BinaryMessage。
func encodeFrame(body *RespBody, compress bool) (int, []byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}
	if !compress {
		return websocket.TextMessage, raw, nil
	}
	zipped, err := Zip(raw)
	if err != nil {
		return 0, nil, err
	}
	return websocket.BinaryMessage, zipped, nil
}

// decodeFrame 文本帧按明文 json 处理，二进制帧先解压。
func decodeFrame(msgType int, data []byte) (*ReqBody, error) {
	if msgType == websocket.BinaryMessage {
		unzipped, err := UnZip(data)
		if err != nil {
			return nil, err
		}
		data = unzipped
	}
	body := &ReqBody{}
	if err := json.Unmarshal(data, body); err != nil {
		return nil, err
	}
	return body, nil
}

func Zip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func UnZip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
