package inspect

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so snapshot bytes are deterministic and
// diffable across runs.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("inspect: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalSnapshot serializes a RegistrySnapshot to CBOR bytes.
func MarshalSnapshot(s *RegistrySnapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a RegistrySnapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (*RegistrySnapshot, error) {
	var s RegistrySnapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("inspect: unmarshal snapshot: %w", err)
	}
	return &s, nil
}

// MarshalInstance serializes an InstanceInfo to CBOR bytes.
func MarshalInstance(info *InstanceInfo) ([]byte, error) {
	return cborEncMode.Marshal(info)
}

// UnmarshalInstance deserializes an InstanceInfo from CBOR bytes.
func UnmarshalInstance(data []byte) (*InstanceInfo, error) {
	var info InstanceInfo
	if err := cbor.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("inspect: unmarshal instance: %w", err)
	}
	return &info, nil
}
