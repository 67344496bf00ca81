// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package types

import (
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
)

// APIItem is the identifier and version of a runtime API.
type APIItem struct {
	Name [8]byte
	Ver  uint32
}

// RuntimeVersion is the version reported by the runtime through Core_version.
type RuntimeVersion struct {
	SpecName         string
	ImplName         string
	AuthoringVersion uint32
	SpecVersion      uint32
	ImplVersion      uint32
	APIItems         []APIItem
}

// CanCallWith returns true if code of other can be called in place of this
// runtime: spec names and authoring versions must be equal.
func (v RuntimeVersion) CanCallWith(other RuntimeVersion) bool {
	return v.SpecName == other.SpecName && v.AuthoringVersion == other.AuthoringVersion
}

// HasAPI returns true if the runtime implements the API at exactly version.
func (v RuntimeVersion) HasAPI(name [8]byte, version uint32) bool {
	for _, item := range v.APIItems {
		if item.Name == name {
			return item.Ver == version
		}
	}
	return false
}

func (v RuntimeVersion) String() string {
	return fmt.Sprintf("%s-%d:%s-%d (%d)",
		v.SpecName, v.SpecVersion, v.ImplName, v.ImplVersion, v.AuthoringVersion)
}

// Encode implements scale.Encodeable.
func (v RuntimeVersion) Encode(encoder scale.Encoder) error {
	err := encodeBytes(encoder, []byte(v.SpecName))
	if err != nil {
		return err
	}
	err = encodeBytes(encoder, []byte(v.ImplName))
	if err != nil {
		return err
	}
	for _, n := range []uint32{v.AuthoringVersion, v.SpecVersion, v.ImplVersion} {
		err = encoder.Encode(n)
		if err != nil {
			return err
		}
	}
	err = encodeCompact(encoder, uint64(len(v.APIItems)))
	if err != nil {
		return err
	}
	for _, item := range v.APIItems {
		err = encoder.Write(item.Name[:])
		if err != nil {
			return err
		}
		err = encoder.Encode(item.Ver)
		if err != nil {
			return err
		}
	}
	return nil
}

// Decode implements scale.Decodeable.
func (v *RuntimeVersion) Decode(decoder scale.Decoder) error {
	specName, err := decodeBytes(decoder)
	if err != nil {
		return fmt.Errorf("decoding spec name: %w", err)
	}
	implName, err := decodeBytes(decoder)
	if err != nil {
		return fmt.Errorf("decoding impl name: %w", err)
	}
	v.SpecName, v.ImplName = string(specName), string(implName)

	for _, n := range []*uint32{&v.AuthoringVersion, &v.SpecVersion, &v.ImplVersion} {
		err = decoder.Decode(n)
		if err != nil {
			return err
		}
	}

	length, err := decodeCompact(decoder)
	if err != nil {
		return fmt.Errorf("decoding api items length: %w", err)
	}
	v.APIItems = make([]APIItem, length)
	for i := range v.APIItems {
		err = decoder.Read(v.APIItems[i].Name[:])
		if err != nil {
			return err
		}
		err = decoder.Decode(&v.APIItems[i].Ver)
		if err != nil {
			return err
		}
	}
	return nil
}
