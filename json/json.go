/*
   Velociraptor - Dig Deeper
   Copyright (C) 2019-2025 Rapid7 Inc.

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU Affero General Public License as published
   by the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU Affero General Public License for more details.

   You should have received a copy of the GNU Affero General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
// Wraps the json library so ordered dicts keep their key order.
package json

import (
	"bytes"
	"sync"

	"github.com/Velocidex/json"
	"github.com/Velocidex/ordereddict"
)

var (
	mu       sync.Mutex
	encoders = []*customEncoder{}
)

type customEncoder struct {
	sample interface{}
	cb     json.EncoderCallback
}

// Registers an encoder for values of the same type as sample. Call
// from an init() function.
func RegisterCustomEncoder(sample interface{}, cb json.EncoderCallback) {
	mu.Lock()
	defer mu.Unlock()

	encoders = append(encoders, &customEncoder{sample, cb})
}

func newEncOpts() *json.EncOpts {
	mu.Lock()
	defer mu.Unlock()

	opts := json.NewEncOpts()
	for _, encoder := range encoders {
		opts.WithCallback(encoder.sample, encoder.cb)
	}
	return opts
}

func Marshal(v interface{}) ([]byte, error) {
	return json.MarshalWithOptions(v, newEncOpts())
}

func MarshalIndent(v interface{}) ([]byte, error) {
	b, err := Marshal(v)
	if err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	err = json.Indent(buf, b, "", " ")
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func MustMarshalIndent(v interface{}) []byte {
	result, err := MarshalIndent(v)
	if err != nil {
		panic(err)
	}
	return result
}

func Unmarshal(b []byte, v interface{}) error {
	return json.Unmarshal(b, v)
}

func marshalDict(v interface{}, opts *json.EncOpts) ([]byte, error) {
	dict, ok := v.(*ordereddict.Dict)
	if !ok {
		return nil, json.EncoderCallbackSkip
	}

	buf := &bytes.Buffer{}
	buf.WriteString("{")
	for idx, key := range dict.Keys() {
		if idx > 0 {
			buf.WriteString(",")
		}

		serialized_key, err := json.MarshalWithOptions(key, opts)
		if err != nil {
			return nil, err
		}
		buf.Write(serialized_key)
		buf.WriteString(":")

		value, _ := dict.Get(key)
		serialized_value, err := json.MarshalWithOptions(value, opts)
		if err != nil {
			serialized_value = []byte("null")
		}
		buf.Write(serialized_value)
	}
	buf.WriteString("}")
	return buf.Bytes(), nil
}

func init() {
	RegisterCustomEncoder(ordereddict.NewDict(), marshalDict)
}
