package catalog

// VoucherCategoryID is the category whose amount is set by the billing
// system during the account check instead of by the payer.
const VoucherCategoryID = 7

type AdditionalParameter struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Regex       string `json:"regex"`
}

type Service struct {
	ID                   int                   `json:"id"`
	Name                 string                `json:"name"`
	IconURL              string                `json:"iconUrl"`
	CategoryID           int                   `json:"categoryId"`
	Description          string                `json:"description"`
	AdditionalParameters []AdditionalParameter `json:"additionalParameters,omitempty"`
	CurrencyISO          string                `json:"currencyISO,omitempty"`
}

func (s Service) IsVoucher() bool {
	return s.CategoryID == VoucherCategoryID
}

type Category struct {
	ID      int     `json:"Id"`
	Name    string  `json:"Name"`
	IconURL *string `json:"IconUrl"`
	OrderID int     `json:"OrderId"`
}
