package file_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/puterbridge/pkg/accounts"
	"github.com/papercomputeco/puterbridge/pkg/accounts/file"
)

var _ = Describe("Source", func() {
	var (
		path string
		ctx  context.Context
	)

	write := func(content string) {
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		path = filepath.Join(GinkgoT().TempDir(), "accounts.toml")
	})

	It("returns no accounts for a missing file", func() {
		accts, err := file.NewSource(path).Accounts(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(accts).To(BeEmpty())
	})

	It("parses accounts and applies defaults", func() {
		write(`
version = 0

[[accounts]]
id = "main"
name = "Main account"
token = "tok-main"

[[accounts]]
token = "tok-second"
active = false
`)

		accts, err := file.NewSource(path).Accounts(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(accts).To(Equal([]accounts.Account{
			{ID: "main", Name: "Main account", Active: true, Token: "tok-main"},
			{ID: "account-2", Name: "account-2", Active: false, Token: "tok-second"},
		}))
	})

	It("picks up edits between calls", func() {
		src := file.NewSource(path)
		write("[[accounts]]\nid = \"a\"\ntoken = \"t1\"\n")

		accts, err := src.Accounts(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(accts).To(HaveLen(1))

		write("[[accounts]]\nid = \"a\"\ntoken = \"t1\"\n\n[[accounts]]\nid = \"b\"\ntoken = \"t2\"\n")

		accts, err = src.Accounts(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(accts).To(HaveLen(2))
	})

	It("rejects malformed files", func() {
		write("[[accounts]\n")

		_, err := file.NewSource(path).Accounts(ctx)
		Expect(err).To(MatchError(ContainSubstring("parsing accounts file")))
	})

	It("rejects unknown versions", func() {
		write("version = 3\n")

		_, err := file.NewSource(path).Accounts(ctx)
		Expect(err).To(MatchError(ContainSubstring("unsupported accounts file version 3")))
	})
})
