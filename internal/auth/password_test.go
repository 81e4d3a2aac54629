package auth

import (
	"strings"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Argon2Hasher", func() {
	var hasher *Argon2Hasher

	ginkgo.BeforeEach(func() {
		hasher = NewArgon2Hasher(1024, 1, 1)
	})

	ginkgo.Describe("Hash", func() {
		ginkgo.It("should produce a PHC string with the configured cost", func() {
			hash, err := hasher.Hash("my-password")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(hash).To(gomega.HavePrefix("$argon2id$v=19$m=1024,t=1,p=1$"))
			gomega.Expect(strings.Split(hash, "$")).To(gomega.HaveLen(6))
			gomega.Expect(hash).ToNot(gomega.ContainSubstring("my-password"))
		})

		ginkgo.It("should salt every hash", func() {
			a, _ := hasher.Hash("my-password")
			b, _ := hasher.Hash("my-password")
			gomega.Expect(a).ToNot(gomega.Equal(b))
		})
	})

	ginkgo.Describe("Verify", func() {
		ginkgo.It("should match the original plaintext only", func() {
			hash, _ := hasher.Hash("my-password")

			gomega.Expect(hasher.Verify(hash, "my-password")).To(gomega.BeTrue())
			gomega.Expect(hasher.Verify(hash, "my-passwore")).To(gomega.BeFalse())
			gomega.Expect(hasher.Verify(hash, "")).To(gomega.BeFalse())
		})

		ginkgo.It("should read the cost from the hash", func() {
			hash, _ := NewArgon2Hasher(2048, 2, 2).Hash("my-password")
			gomega.Expect(hasher.Verify(hash, "my-password")).To(gomega.BeTrue())
		})

		ginkgo.It("should treat malformed hashes as a mismatch", func() {
			for _, bad := range []string{
				"",
				"plaintext",
				"$2a$10$abcdefghijklmnopqrstuu",
				"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
				"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
				"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$a2V5",
				"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
			} {
				gomega.Expect(hasher.Verify(bad, "my-password")).To(gomega.BeFalse(), bad)
			}
		})
	})

	ginkgo.It("should fall back to default cost", func() {
		h := NewArgon2Hasher(0, 0, 0)
		gomega.Expect(h.Memory).To(gomega.Equal(uint32(65536)))
		gomega.Expect(h.Iterations).To(gomega.Equal(uint32(3)))
		gomega.Expect(h.Parallelism).To(gomega.Equal(uint8(4)))
	})
})
