package accounts_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/puterbridge/pkg/accounts"
)

var _ = Describe("Account", func() {
	DescribeTable("Eligible",
		func(a accounts.Account, expected bool) {
			Expect(a.Eligible()).To(Equal(expected))
		},
		Entry("active with token", accounts.Account{Active: true, Token: "t"}, true),
		Entry("inactive with token", accounts.Account{Active: false, Token: "t"}, false),
		Entry("active without token", accounts.Account{Active: true}, false),
	)

	It("filters ineligible accounts and keeps order", func() {
		all := []accounts.Account{
			{ID: "1", Active: true, Token: "a"},
			{ID: "2", Active: false, Token: "b"},
			{ID: "3", Active: true, Token: "c"},
		}

		Expect(accounts.Eligible(all)).To(Equal([]accounts.Account{all[0], all[2]}))
	})
})

var _ = Describe("Stats", func() {
	It("records successes and failures without mutating the receiver", func() {
		now := time.Now()
		var s accounts.Stats

		s2 := s.Apply(true, now).Apply(false, now.Add(time.Second))

		Expect(s.TotalCalls).To(BeZero())
		Expect(s2.TotalCalls).To(Equal(int64(2)))
		Expect(s2.SuccessCalls).To(Equal(int64(1)))
		Expect(s2.FailedCalls).To(Equal(int64(1)))
		Expect(*s2.LastSuccess).To(Equal(now))
		Expect(*s2.LastFailure).To(Equal(now.Add(time.Second)))
	})
})

var _ = Describe("ErrNotFound", func() {
	It("names the missing id", func() {
		Expect(accounts.ErrNotFound{ID: "7"}.Error()).To(Equal("account not found: 7"))
		Expect(accounts.ErrNotFound{}.Error()).To(Equal("account not found"))
	})
})
