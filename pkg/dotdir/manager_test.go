package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragloop/pkg/dotdir"
)

var _ = Describe("dotdir", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())

		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("Target", func() {
		It("creates the directory if it doesn't exist", func() {
			dir := filepath.Join(tmpDir, "newdir")
			result, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("returns the override dir even when a local .ragloop dir exists", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, ".ragloop"), 0o755)).To(Succeed())

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(tmpDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			overrideDir := filepath.Join(tmpDir, "override")
			result, err := m.Target(overrideDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(overrideDir))
		})

		It("returns the local .ragloop dir when it exists and no override is provided", func() {
			local := filepath.Join(tmpDir, ".ragloop")
			Expect(os.Mkdir(local, 0o755)).To(Succeed())

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(tmpDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(local))
		})

		It("falls back to a created ~/.ragloop dir", func() {
			emptyDir := filepath.Join(tmpDir, "empty")
			Expect(os.Mkdir(emptyDir, 0o755)).To(Succeed())

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(emptyDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			GinkgoT().Setenv("HOME", emptyDir)

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(emptyDir, ".ragloop")))
			Expect(filepath.Join(emptyDir, ".ragloop")).To(BeADirectory())
		})
	})

	Describe("state files", func() {
		It("places files inside the resolved directory", func() {
			path, err := m.Path(tmpDir, "chat.json")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(filepath.Join(tmpDir, "chat.json")))
		})

		It("reads a missing file as nil", func() {
			data, err := m.ReadFile(tmpDir, "missing.json")
			Expect(err).NotTo(HaveOccurred())
			Expect(data).To(BeNil())
		})

		It("replaces a file without leaving temporary files behind", func() {
			Expect(m.WriteFile(tmpDir, "state.json", []byte("first"))).To(Succeed())
			Expect(m.WriteFile(tmpDir, "state.json", []byte("second"))).To(Succeed())

			data, err := m.ReadFile(tmpDir, "state.json")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("second"))

			entries, err := os.ReadDir(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))

			info, err := os.Stat(filepath.Join(tmpDir, "state.json"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("removes a file and ignores a missing one", func() {
			Expect(m.WriteFile(tmpDir, "state.json", []byte("x"))).To(Succeed())
			Expect(m.Remove(tmpDir, "state.json")).To(Succeed())
			Expect(filepath.Join(tmpDir, "state.json")).NotTo(BeAnExistingFile())
			Expect(m.Remove(tmpDir, "state.json")).To(Succeed())
		})
	})
})
