// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"bytes"
	"flag"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

// newTestContext returns a cli context with the flags set to the values
// given, and the application output written to the returned buffer.
func newTestContext(t *testing.T, flags map[string]interface{}, args ...string) (
	*cli.Context, *bytes.Buffer) {
	t.Helper()

	set := flag.NewFlagSet(t.Name(), flag.ContinueOnError)
	for name, value := range flags {
		switch v := value.(type) {
		case string:
			set.String(name, "", "")
		case bool:
			set.Bool(name, false, "")
		case int:
			set.Int(name, 0, "")
		case uint:
			set.Uint(name, 0, "")
		case uint64:
			set.Uint64(name, 0, "")
		case time.Duration:
			set.Duration(name, 0, "")
		case []string:
			set.Var(&cli.StringSlice{}, name, "")
			for _, s := range v {
				require.NoError(t, set.Set(name, s))
			}
			continue
		default:
			t.Fatalf("unsupported flag value type %T", value)
		}
		require.NoError(t, set.Set(name, fmt.Sprint(value)))
	}
	require.NoError(t, set.Parse(args))

	output := bytes.NewBuffer(nil)
	testApp := cli.NewApp()
	testApp.Writer = output
	return cli.NewContext(testApp, set, nil), output
}
