package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/puterbridge/pkg/accounts"
)

var _ = Describe("Source", func() {
	var (
		src *Source
		ctx context.Context
	)

	insert := func(name, status string, isActive bool, token string) {
		_, err := src.db.ExecContext(ctx,
			`INSERT INTO accounts (name, status, is_active, auth_token) VALUES (?, ?, ?, ?)`,
			name, status, isActive, token)
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		src, err = NewSource(ctx, ":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if src != nil {
			src.Close()
		}
	})

	Describe("NewSource", func() {
		It("creates a database file", func() {
			dbPath := filepath.Join(GinkgoT().TempDir(), "accounts.db")

			s, err := NewSource(ctx, dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Accounts", func() {
		It("returns nothing for an empty table", func() {
			accts, err := src.Accounts(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(accts).To(BeEmpty())
		})

		It("derives activity from status and is_active", func() {
			insert("alice", "active", true, "tok-a")
			insert("bob", "expired", true, "tok-b")
			insert("carol", "active", false, "tok-c")
			insert("dave", "active", true, "")

			accts, err := src.Accounts(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(accts).To(HaveLen(4))

			Expect(accts[0]).To(Equal(accounts.Account{ID: "1", Name: "alice", Active: true, Token: "tok-a"}))
			Expect(accts[1].Active).To(BeFalse())
			Expect(accts[2].Active).To(BeFalse())

			eligible := accounts.Eligible(accts)
			Expect(eligible).To(HaveLen(1))
			Expect(eligible[0].Name).To(Equal("alice"))
		})
	})

	Describe("RecordCall", func() {
		BeforeEach(func() {
			insert("alice", "active", true, "tok-a")
		})

		It("counts successes and failures", func() {
			now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

			Expect(src.RecordCall(ctx, "1", true, now)).To(Succeed())
			Expect(src.RecordCall(ctx, "1", true, now.Add(time.Minute))).To(Succeed())
			Expect(src.RecordCall(ctx, "1", false, now.Add(2*time.Minute))).To(Succeed())

			stats, err := src.Stats(ctx, "1")
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.TotalCalls).To(Equal(int64(3)))
			Expect(stats.SuccessCalls).To(Equal(int64(2)))
			Expect(stats.FailedCalls).To(Equal(int64(1)))
			Expect(stats.LastSuccess).NotTo(BeNil())
			Expect(stats.LastSuccess.Equal(now.Add(time.Minute))).To(BeTrue())
			Expect(stats.LastFailure).NotTo(BeNil())
			Expect(stats.LastFailure.Equal(now.Add(2 * time.Minute))).To(BeTrue())
		})

		It("returns ErrNotFound for unknown accounts", func() {
			err := src.RecordCall(ctx, "42", true, time.Now())
			Expect(err).To(MatchError(accounts.ErrNotFound{ID: "42"}))

			_, err = src.Stats(ctx, "42")
			Expect(err).To(MatchError(accounts.ErrNotFound{ID: "42"}))
		})
	})
})
