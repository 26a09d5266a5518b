package sqlite_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/lincode/pkg/llm"
	"github.com/papercomputeco/lincode/pkg/storage"
	"github.com/papercomputeco/lincode/pkg/storage/sqlite"
	testutils "github.com/papercomputeco/lincode/pkg/utils/test"
)

var _ = Describe("SQLiteDriver", func() {
	testutils.DescribeStorageDriver(func() storage.Driver {
		driver, err := sqlite.NewSQLiteDriver(":memory:")
		Expect(err).NotTo(HaveOccurred())
		return driver
	})

	Describe("NewSQLiteDriver", func() {
		It("persists history in a database file", func() {
			ctx := context.Background()
			dbPath := filepath.Join(GinkgoT().TempDir(), "history.db")

			s, err := sqlite.NewSQLiteDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Append(ctx, "s1", llm.NewTextMessage(llm.RoleUser, "hi"))).To(Succeed())
			Expect(s.Close()).To(Succeed())

			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())

			s, err = sqlite.NewSQLiteDriver(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			history, err := s.History(ctx, "s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(Equal([]llm.Message{llm.NewTextMessage(llm.RoleUser, "hi")}))
		})

		It("fails for an unwritable path", func() {
			_, err := sqlite.NewSQLiteDriver(filepath.Join(GinkgoT().TempDir(), "missing", "dir", "history.db"))
			Expect(err).To(HaveOccurred())
		})
	})
})
