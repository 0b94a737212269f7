package rmi_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/ugv-zrf/zrf/rmi"
	"github.com/ugv-zrf/zrf/zerr"
)

var _ = Describe("ServiceManager directory", func() {
	var (
		sm         *rmi.ServiceManager
		managerURI string
	)

	BeforeEach(func() {
		var err error
		sm, err = rmi.NewServiceManager()
		Expect(err).NotTo(HaveOccurred())

		reg := rmi.NewRegistry()
		rmi.Register(reg, methodSum, func(a, b int32) int32 { return a + b })
		Expect(sm.RegisterService("adder", "tcp://*:0", reg)).To(Succeed())

		Expect(sm.Serve("tcp://*:0")).To(Succeed())
		managerURI = addrToConnect(sm.DirectoryAddr())
	})

	AfterEach(func() {
		sm.Stop(time.Second)
	})

	It("starts a registered service on first lookup and returns its live URI", func() {
		uri, err := rmi.LookupService(managerURI, "adder")
		Expect(err).NotTo(HaveOccurred())
		Expect(uri).To(HavePrefix("tcp://"))
		Expect(uri).NotTo(ContainSubstring("*"))
		Expect(uri).NotTo(HaveSuffix(":0"))
	})

	It("returns the same URI on every subsequent lookup", func() {
		first, err := rmi.LookupService(managerURI, "adder")
		Expect(err).NotTo(HaveOccurred())
		second, err := rmi.LookupService(managerURI, "adder")
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})

	It("serves calls end to end through Connect", func() {
		proxy, err := rmi.Connect(managerURI, "adder")
		Expect(err).NotTo(HaveOccurred())
		defer proxy.Stop(time.Second)

		sum, err := rmi.As[int32](proxy.Request(methodSum, int32(7), int32(4)))
		Expect(err).NotTo(HaveOccurred())
		Expect(sum).To(Equal(int32(11)))
	})

	It("answers an unregistered name with the no-available text", func() {
		_, err := rmi.LookupService(managerURI, "reverser")
		Expect(err).To(HaveOccurred())

		var rse *zerr.RemoteServiceException
		Expect(errors.As(err, &rse)).To(BeTrue())
		Expect(rse.Message).To(Equal("No reverser available"))
	})
})
