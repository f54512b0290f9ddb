package service

import "encoding/json"

// BusinessTypes is the closed set offered by the signup wizard.
var BusinessTypes = []string{
	"restaurant",
	"retail",
	"distribution",
	"cafe",
	"grocery",
	"pharmacy",
	"other",
}

// IsKnownBusinessType reports whether the wizard offers the given type.
func IsKnownBusinessType(businessType string) bool {
	for _, known := range BusinessTypes {
		if businessType == known {
			return true
		}
	}
	return false
}

// TerminologyPreset returns the initial terminology for a business type.
// Food businesses get the kitchen-flavored Indonesian preset; everyone else
// gets the stock one.
func TerminologyPreset(businessType string) map[string]string {
	if businessType == "restaurant" || businessType == "cafe" {
		return map[string]string{
			"rider":            "Kurir",
			"rider_plural":     "Kurir",
			"warehouse":        "Dapur",
			"warehouse_plural": "Dapur",
			"pos":              "Kasir",
			"product":          "Menu",
			"product_plural":   "Menu",
			"customer":         "Pelanggan",
			"customer_plural":  "Pelanggan",
			"order":            "Pesanan",
			"order_plural":     "Pesanan",
			"return":           "Retur",
			"report":           "Laporan",
			"report_plural":    "Laporan",
			"dashboard":        "Dashboard",
			"settings":         "Pengaturan",
		}
	}
	return map[string]string{
		"rider":            "Rider",
		"rider_plural":     "Riders",
		"warehouse":        "Gudang",
		"warehouse_plural": "Gudang",
		"pos":              "POS",
		"product":          "Produk",
		"product_plural":   "Produk",
		"customer":         "Pelanggan",
		"customer_plural":  "Pelanggan",
		"order":            "Transaksi",
		"order_plural":     "Transaksi",
		"return":           "Return",
		"report":           "Laporan",
		"report_plural":    "Laporan",
		"dashboard":        "Dashboard",
		"settings":         "Pengaturan",
	}
}

// FeaturesPreset returns the initial feature flags for a plan. The base set
// covers every plan; higher tiers switch more flags on, and enterprise
// enables everything.
func FeaturesPreset(planName string) map[string]bool {
	base := map[string]bool{
		"pos":                 true,
		"warehouse":           true,
		"reports":             true,
		"gps_tracking":        false,
		"production_tracking": false,
		"low_stock_alerts":    true,
		"returns_management":  true,
		"weather_widget":      false,
		"advanced_reports":    false,
		"api_access":          false,
		"multi_currency":      false,
		"barcode_scanner":     false,
		"email_notifications": false,
		"sms_notifications":   false,
	}

	switch planName {
	case "basic":
		base["gps_tracking"] = true
		base["email_notifications"] = true
	case "pro":
		base["gps_tracking"] = true
		base["production_tracking"] = true
		base["advanced_reports"] = true
		base["email_notifications"] = true
		base["barcode_scanner"] = true
		base["weather_widget"] = true
	case "enterprise":
		for key := range base {
			base[key] = true
		}
	}
	return base
}

// BrandingPreset returns the initial branding payload.
func BrandingPreset() map[string]any {
	return map[string]any{
		"primary_color":   "#3b82f6",
		"secondary_color": "#8b5cf6",
		"logo_url":        nil,
		"favicon_url":     nil,
	}
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
