package card

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Controller", func() {
	var c *Controller

	BeforeEach(func() {
		c = NewController()
	})

	It("starts idle with no modal, selection or message", func() {
		Expect(c.Snapshot()).To(Equal(Snapshot{State: StateIdle, Modal: ModalNone}))
	})

	Describe("Begin", func() {
		It("moves the flow to acquiring", func() {
			Expect(c.Begin()).To(Succeed())
			Expect(c.Snapshot().State).To(Equal(StateAcquiring))
		})

		It("clears a stale status message", func() {
			c.SetMessage("old failure")
			Expect(c.Begin()).To(Succeed())
			Expect(c.Snapshot().Message).To(BeEmpty())
		})

		When("a flow is already in progress", func() {
			BeforeEach(func() {
				Expect(c.Begin()).To(Succeed())
			})

			It("returns ErrFlowBusy", func() {
				Expect(c.Begin()).To(MatchError(ErrFlowBusy))
			})

			It("refuses re-entry from any later phase", func() {
				Expect(c.Advance(StateExtracting)).To(Succeed())
				Expect(c.Begin()).To(MatchError(ErrFlowBusy))
				Expect(c.Advance(StatePersisting)).To(Succeed())
				Expect(c.Begin()).To(MatchError(ErrFlowBusy))
			})
		})
	})

	Describe("Advance", func() {
		It("walks acquiring, extracting, persisting in order", func() {
			Expect(c.Begin()).To(Succeed())
			Expect(c.Advance(StateExtracting)).To(Succeed())
			Expect(c.Advance(StatePersisting)).To(Succeed())
			Expect(c.Snapshot().State).To(Equal(StatePersisting))
		})

		It("rejects skipping a phase", func() {
			Expect(c.Begin()).To(Succeed())
			err := c.Advance(StatePersisting)
			var transition *TransitionError
			Expect(errors.As(err, &transition)).To(BeTrue())
			Expect(transition.From).To(Equal(StateAcquiring))
			Expect(transition.To).To(Equal(StatePersisting))
		})

		It("rejects advancing from idle", func() {
			Expect(c.Advance(StateExtracting)).To(HaveOccurred())
		})
	})

	Describe("Finish", func() {
		BeforeEach(func() {
			Expect(c.Begin()).To(Succeed())
			Expect(c.Advance(StateExtracting)).To(Succeed())
			Expect(c.Advance(StatePersisting)).To(Succeed())
		})

		It("returns the flow to idle with the message", func() {
			c.Finish("Card saved")
			snap := c.Snapshot()
			Expect(snap.State).To(Equal(StateIdle))
			Expect(snap.Message).To(Equal("Card saved"))
		})

		It("runs the registered cleanup hooks", func() {
			ran := 0
			c.OnCleanup(func() { ran++ })
			c.OnCleanup(func() { ran++ })
			c.Finish("Card saved")
			Expect(ran).To(Equal(2))
		})
	})

	Describe("Fail", func() {
		It("returns the flow to idle from any phase", func() {
			Expect(c.Begin()).To(Succeed())
			Expect(c.Advance(StateExtracting)).To(Succeed())
			c.Fail("extraction failed")
			snap := c.Snapshot()
			Expect(snap.State).To(Equal(StateIdle))
			Expect(snap.Message).To(Equal("extraction failed"))
		})

		It("runs cleanup hooks on every exit path", func() {
			ran := 0
			c.OnCleanup(func() { ran++ })
			Expect(c.Begin()).To(Succeed())
			c.Fail("acquisition failed")
			Expect(ran).To(Equal(1))

			Expect(c.Begin()).To(Succeed())
			Expect(c.Advance(StateExtracting)).To(Succeed())
			Expect(c.Advance(StatePersisting)).To(Succeed())
			c.Finish("saved")
			Expect(ran).To(Equal(2))
		})

		It("closes the camera modal", func() {
			Expect(c.OpenModal(ModalCamera)).To(Succeed())
			Expect(c.Begin()).To(Succeed())
			c.Fail("capture failed")
			Expect(c.Snapshot().Modal).To(Equal(ModalNone))
		})

		It("leaves an open edit modal alone", func() {
			Expect(c.OpenModal(ModalEdit)).To(Succeed())
			Expect(c.Begin()).To(Succeed())
			c.Fail("unrelated upload failed")
			Expect(c.Snapshot().Modal).To(Equal(ModalEdit))
		})

		It("allows a fresh flow afterwards", func() {
			Expect(c.Begin()).To(Succeed())
			c.Fail("failed")
			Expect(c.Begin()).To(Succeed())
		})
	})

	Describe("selection", func() {
		It("is independent of the upload flow", func() {
			Expect(c.Begin()).To(Succeed())
			c.Select("card-1")
			snap := c.Snapshot()
			Expect(snap.SelectedID).To(Equal("card-1"))
			Expect(snap.State).To(Equal(StateAcquiring))
		})

		It("survives a finished flow", func() {
			c.Select("card-1")
			Expect(c.Begin()).To(Succeed())
			c.Fail("failed")
			Expect(c.Snapshot().SelectedID).To(Equal("card-1"))
		})

		Describe("DropSelection", func() {
			BeforeEach(func() {
				c.Select("card-1")
			})

			It("clears a matching selection", func() {
				c.DropSelection("card-1")
				Expect(c.Snapshot().SelectedID).To(BeEmpty())
			})

			It("ignores a non-matching selection", func() {
				c.DropSelection("card-2")
				Expect(c.Snapshot().SelectedID).To(Equal("card-1"))
			})
		})

		Describe("ClearSelection", func() {
			It("clears any selection", func() {
				c.Select("card-1")
				c.ClearSelection()
				Expect(c.Snapshot().SelectedID).To(BeEmpty())
			})
		})
	})

	Describe("modals", func() {
		It("opens and closes an overlay", func() {
			Expect(c.OpenModal(ModalDeleteConfirm)).To(Succeed())
			Expect(c.Snapshot().Modal).To(Equal(ModalDeleteConfirm))
			c.CloseModal()
			Expect(c.Snapshot().Modal).To(Equal(ModalNone))
		})

		It("allows only one modal at a time", func() {
			Expect(c.OpenModal(ModalEdit)).To(Succeed())
			Expect(c.OpenModal(ModalCamera)).To(HaveOccurred())
		})

		It("tolerates reopening the same modal", func() {
			Expect(c.OpenModal(ModalEdit)).To(Succeed())
			Expect(c.OpenModal(ModalEdit)).To(Succeed())
		})

		It("does not block the upload flow", func() {
			Expect(c.OpenModal(ModalEdit)).To(Succeed())
			Expect(c.Begin()).To(Succeed())
			Expect(c.Advance(StateExtracting)).To(Succeed())
		})
	})
})
