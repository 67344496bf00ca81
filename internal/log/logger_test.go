// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"io"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_New(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		options        []Option
		expectedLogger *Logger
	}{
		"no option": {
			expectedLogger: &Logger{
				settings: settings{
					writer: os.Stdout,
					level:  ptrTo(Info),
					format: ptrTo(FormatConsole),
					caller: newCallerSettings(false, false, false),
				},
				mutex: new(sync.Mutex),
			},
		},
		"all options": {
			options: []Option{
				SetLevel(Trace),
				SetCallerFile(true),
				SetCallerLine(true),
				SetCallerFunc(true),
				SetFormat(FormatConsole),
				SetWriter(io.Discard),
				AddContext("key1", "value1"),
				AddContext("key1", "value2"),
			},
			expectedLogger: &Logger{
				settings: settings{
					writer: io.Discard,
					level:  ptrTo(Trace),
					format: ptrTo(FormatConsole),
					caller: newCallerSettings(true, true, true),
					context: []contextKeyValues{
						{key: "key1", values: []string{"value1", "value2"}},
					},
				},
				mutex: new(sync.Mutex),
			},
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			logger := New(testCase.options...)

			assert.Equal(t, testCase.expectedLogger, logger)
		})
	}
}

func Test_Logger_New(t *testing.T) {
	t.Parallel()

	parent := New(SetWriter(io.Discard), SetLevel(Warn), AddContext("pkg", "client"))

	child := parent.New(SetLevel(Debug), AddContext("module", "import"))

	expectedSettings := settings{
		writer: io.Discard,
		level:  ptrTo(Debug),
		format: ptrTo(FormatConsole),
		caller: newCallerSettings(false, false, false),
		context: []contextKeyValues{
			{key: "pkg", values: []string{"client"}},
			{key: "module", values: []string{"import"}},
		},
	}
	assert.Equal(t, expectedSettings, child.settings)
	assert.Same(t, parent.mutex, child.mutex)
	assert.Equal(t, []*Logger{child}, parent.childs)
	assert.Equal(t, Warn, *parent.settings.level)
}
