package clients

import "github.com/tm-acme-shop/acme-shop-tax-service/internal/tax"

// Compile-time interface checks.
var (
	_ tax.LookupService    = (*TaxCloudClient)(nil)
	_ tax.AddressVerifier  = (*TaxCloudClient)(nil)
	_ tax.ReportingService = (*TaxCloudClient)(nil)
	_ tax.CertificateStore = (*CertificateClient)(nil)

	_ tax.LookupService   = (*FlatRateFallback)(nil)
	_ tax.AddressVerifier = (*FlatRateFallback)(nil)
)
