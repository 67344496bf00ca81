// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package light

//go:generate mockgen -destination=mocks_test.go -package=$GOPACKAGE . Fetcher,FetchChecker
