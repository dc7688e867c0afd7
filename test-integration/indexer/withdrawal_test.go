package integration

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/notebox/notebox-indexer/internal/kafka"
	"github.com/notebox/notebox-indexer/internal/records"
	"github.com/notebox/notebox-indexer/internal/withdrawal"
	"github.com/notebox/notebox-indexer/test-integration/indexer/helpers"
)

var _ = Describe("Account withdrawal", Label("withdrawal"), Ordered, func() {
	const subject = "owner-withdrawn"
	noteIDs := []string{"withdrawn-1", "withdrawn-2"}

	BeforeAll(func() {
		saveNotes(helpers.NewNote(subject, noteIDs[0]), helpers.NewNote(subject, noteIDs[1]))
		_, err := indexer.Sync("notes", "major")
		Expect(err).NotTo(HaveOccurred())
		_, err = indexer.Sync("fields", "major")
		Expect(err).NotTo(HaveOccurred())
		Expect(noteDocIDs(noteIDs...)).To(HaveLen(2))
	})

	It("runs every step when the withdrawal event arrives", func() {
		producer, err := kafka.NewProducer(env.Brokers)
		Expect(err).NotTo(HaveOccurred())
		defer producer.Close()

		cfg := indexer.App().GetConfig()
		Expect(producer.Publish(ctx, cfg.Kafka.GetWithdrawalTopic(),
			[]byte(subject), []byte(`{"subjectId":"`+subject+`"}`))).To(Succeed())

		Eventually(func(g Gomega) {
			history, err := indexer.History(subject)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(history.Entries).To(HaveLen(len(withdrawal.Processes)))
			for _, e := range history.Entries {
				g.Expect(e.Passed).To(BeTrue(), "step %s", e.Process)
			}
		}, 2*time.Minute, time.Second).Should(Succeed())

		for _, id := range noteIDs {
			note, err := store.FindByExternalID(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(note.Status).To(Equal(records.StatusDeleted))
		}
		Expect(noteDocIDs(noteIDs...)).To(BeEmpty())
		Expect(fieldDocs(noteIDs...)).To(BeEmpty())
	})

	It("keeps withdrawn notes out of the indexes on later passes", func() {
		result, err := indexer.Sync("notes", "major")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Repaired).To(BeEmpty())
		Expect(noteDocIDs(noteIDs...)).To(BeEmpty())
	})
})
