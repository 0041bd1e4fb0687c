package card

import (
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CookieIdentity", func() {
	var identity *CookieIdentity

	BeforeEach(func() {
		identity = NewCookieIdentity()
	})

	When("the request carries a session cookie", func() {
		It("should return the existing identity without setting a cookie", func() {
			req := httptest.NewRequest("GET", "/api/cards", nil)
			req.AddCookie(&http.Cookie{Name: "cardvault_session", Value: "existing-session"})
			rec := httptest.NewRecorder()

			Expect(identity.Resolve(rec, req)).To(Equal("existing-session"))
			Expect(rec.Result().Cookies()).To(BeEmpty())
		})
	})

	When("the request has no session cookie", func() {
		It("should mint an identity and set the cookie", func() {
			req := httptest.NewRequest("GET", "/api/cards", nil)
			rec := httptest.NewRecorder()

			id := identity.Resolve(rec, req)
			Expect(id).NotTo(BeEmpty())

			cookies := rec.Result().Cookies()
			Expect(cookies).To(HaveLen(1))
			Expect(cookies[0].Name).To(Equal("cardvault_session"))
			Expect(cookies[0].Value).To(Equal(id))
			Expect(cookies[0].HttpOnly).To(BeTrue())
		})

		It("should mint a distinct identity per session", func() {
			first := identity.Resolve(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
			second := identity.Resolve(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
			Expect(first).NotTo(Equal(second))
		})
	})

	When("minting fails", func() {
		BeforeEach(func() {
			identity.mint = func() (string, error) {
				return "", errors.New("entropy exhausted")
			}
		})

		It("should fall back to a local identifier", func() {
			req := httptest.NewRequest("GET", "/api/cards", nil)
			rec := httptest.NewRecorder()

			id := identity.Resolve(rec, req)
			Expect(id).To(HavePrefix("anon-"))

			cookies := rec.Result().Cookies()
			Expect(cookies).To(HaveLen(1))
			Expect(cookies[0].Value).To(Equal(id))
		})
	})
})
