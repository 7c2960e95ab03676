package transport

import (
	"bytes"
	"encoding/gob"

	"google.golang.org/grpc/encoding"
)

// gobCodecName is the name the gob codec is registered under in init. It is
// not the default codec: a client selects it per call with
// grpc.CallContentSubtype (see GrpcPeer.Connect), and the server then
// decodes with it instead of protobuf. There is no protoc-generated type to exchange here, and gob already backs the
// metadata store's durable encoding (see storage.BoltMetadataStore), so
// reusing it for transport avoids introducing a second serialization format.
const gobCodecName = "gob"

type gobCodec struct{}

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (gobCodec) Name() string {
	return gobCodecName
}

func init() {
	encoding.RegisterCodec(gobCodec{})
}
