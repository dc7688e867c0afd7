package integration

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/notebox/notebox-indexer/internal/records"
	"github.com/notebox/notebox-indexer/internal/search/noteindex"
	"github.com/notebox/notebox-indexer/test-integration/indexer/helpers"
)

var _ = Describe("Index reconciliation", Label("sync"), Ordered, func() {
	const owner = "owner-sync"
	var (
		kept    *records.Note
		added   *records.Note
		deleted *records.Note
	)

	BeforeAll(func() {
		kept = helpers.NewNote(owner, "sync-kept")
		added = helpers.NewNote(owner, "sync-added")
		deleted = helpers.NewNote(owner, "sync-deleted")
		saveNotes(kept, added, deleted)

		By("indexing a stale copy of one note and a leftover of a deleted one")
		stale := *kept
		stale.ContentHash = "hash-outdated"
		awaitTask(noteIndex.Save(ctx, noteindex.NewDocument(&stale, time.Now())))

		savedDeleted, err := store.FindByExternalID(ctx, deleted.ExternalID)
		Expect(err).NotTo(HaveOccurred())
		awaitTask(noteIndex.Save(ctx, noteindex.NewDocument(savedDeleted, time.Now())))

		deleted.Status = records.StatusDeleted
		saveNotes(deleted)
	})

	It("repairs every drifted note of the whole-note index", func() {
		result, err := indexer.Sync("notes", "major")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Failed).To(BeZero())
		Expect(result.Repaired).To(HaveKeyWithValue("not-indexed", BeNumerically(">=", 1)))
		Expect(result.Repaired).To(HaveKeyWithValue("not-removed", BeNumerically(">=", 1)))
		Expect(result.Repaired).To(HaveKeyWithValue("stale", BeNumerically(">=", 1)))

		Expect(noteDocIDs(kept.ExternalID, added.ExternalID, deleted.ExternalID)).
			To(ConsistOf(kept.ExternalID, added.ExternalID))

		docs, err := noteIndex.FindByNoteIDs(ctx, []string{kept.ExternalID})
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(1))
		Expect(docs[0].ContentHash).To(Equal(kept.ContentHash))
	})

	It("finds nothing to repair on the next pass", func() {
		result, err := indexer.Sync("notes", "major")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Repaired).To(BeEmpty())
		Expect(result.Failed).To(BeZero())
	})

	It("indexes one document per field value", func() {
		result, err := indexer.Sync("fields", "major")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Failed).To(BeZero())

		docs := fieldDocs(kept.ExternalID, added.ExternalID, deleted.ExternalID)
		Expect(docs).To(HaveLen(4))
		for _, d := range docs {
			Expect(d.OwnerID).To(Equal(owner))
			Expect(d.Name).To(Equal("project"))
			Expect(d.Value).To(BeElementOf("alpha", "beta"))
			Expect(d.NoteID).NotTo(Equal(deleted.ExternalID))
		}

		again, err := indexer.Sync("fields", "major")
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Repaired).To(BeEmpty())
	})

	It("rejects unknown sync modes", func() {
		_, err := indexer.Sync("notes", "weekly")
		Expect(err).To(MatchError(ContainSubstring("status 400")))
	})
})
