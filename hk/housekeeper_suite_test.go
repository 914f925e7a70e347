// Package hk provides a mechanism for registering named periodic
// callbacks invoked at the interval each callback itself returns.
/*
 * Copyright (c) 2018-2026, reactor authors. All rights reserved.
 */
package hk_test

import (
	"testing"

	"github.com/aisreactor/reactor/hk"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestHousekeeper(t *testing.T) {
	hk.TestInit()
	go hk.DefaultHK.Run()
	hk.WaitStarted()
	RegisterFailHandler(Fail)
	RunSpecs(t, t.Name())
}
