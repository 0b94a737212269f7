package rmi_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestRMI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "rmi suite")
}
