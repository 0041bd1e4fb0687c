package card

import (
	"encoding/base64"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DecodeDataURL", func() {
	var (
		input    string
		data     []byte
		mimeType string
		err      error
	)

	JustBeforeEach(func() {
		data, mimeType, err = DecodeDataURL(input)
	})

	When("decoding a valid JPEG data URL", func() {
		BeforeEach(func() {
			input = "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("frame bytes"))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the decoded bytes", func() {
			Expect(data).To(Equal([]byte("frame bytes")))
		})

		It("should return the MIME type", func() {
			Expect(mimeType).To(Equal("image/jpeg"))
		})
	})

	When("the MIME type is omitted", func() {
		BeforeEach(func() {
			input = "data:;base64," + base64.StdEncoding.EncodeToString([]byte("frame bytes"))
		})

		It("should default to PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(mimeType).To(Equal("image/png"))
		})
	})

	When("the payload is missing entirely", func() {
		BeforeEach(func() {
			input = ""
		})

		It("returns ErrNoPayload", func() {
			Expect(errors.Is(err, ErrNoPayload)).To(BeTrue())
		})
	})

	When("nothing follows the data URL prefix", func() {
		BeforeEach(func() {
			input = "data:image/png;base64,"
		})

		It("returns ErrEmptyPayload", func() {
			Expect(errors.Is(err, ErrEmptyPayload)).To(BeTrue())
		})
	})

	When("the input is not a data URL", func() {
		BeforeEach(func() {
			input = "https://example.com/card.png"
		})

		It("returns ErrUnreadablePayload", func() {
			Expect(errors.Is(err, ErrUnreadablePayload)).To(BeTrue())
		})
	})

	When("the payload is not base64 encoded", func() {
		BeforeEach(func() {
			input = "data:image/png;base64,!!!not-base64!!!"
		})

		It("returns ErrUnreadablePayload", func() {
			Expect(errors.Is(err, ErrUnreadablePayload)).To(BeTrue())
		})
	})

	When("the encoding marker is missing", func() {
		BeforeEach(func() {
			input = "data:image/png,rawdata"
		})

		It("returns ErrUnreadablePayload", func() {
			Expect(errors.Is(err, ErrUnreadablePayload)).To(BeTrue())
		})
	})
})
