package service

// Branding controls the white-label appearance of a tenant.
type Branding struct {
	PrimaryColor   string  `json:"primary_color"`
	SecondaryColor string  `json:"secondary_color"`
	LogoURL        *string `json:"logo_url,omitempty"`
	FaviconURL     *string `json:"favicon_url,omitempty"`
	AppName        string  `json:"app_name"`
}

// Terminology renames the built-in concepts per tenant (a restaurant calls
// products "Menu", its warehouse "Dapur").
type Terminology struct {
	Rider           string `json:"rider"`
	RiderPlural     string `json:"rider_plural"`
	Warehouse       string `json:"warehouse"`
	WarehousePlural string `json:"warehouse_plural,omitempty"`
	POS             string `json:"pos"`
	Product         string `json:"product"`
	ProductPlural   string `json:"product_plural"`
	Customer        string `json:"customer"`
	CustomerPlural  string `json:"customer_plural"`
	Order           string `json:"order"`
	OrderPlural     string `json:"order_plural"`
	Return          string `json:"return"`
	ReturnPlural    string `json:"return_plural,omitempty"`
	Report          string `json:"report"`
	ReportPlural    string `json:"report_plural"`
	Dashboard       string `json:"dashboard"`
	Settings        string `json:"settings"`
}

// Features is the per-tenant feature-flag set.
type Features struct {
	POS                bool `json:"pos"`
	Warehouse          bool `json:"warehouse"`
	Reports            bool `json:"reports"`
	GPSTracking        bool `json:"gps_tracking"`
	ProductionTracking bool `json:"production_tracking"`
	LowStockAlerts     bool `json:"low_stock_alerts"`
	ReturnsManagement  bool `json:"returns_management"`
	WeatherWidget      bool `json:"weather_widget"`
	AdvancedReports    bool `json:"advanced_reports"`
	APIAccess          bool `json:"api_access"`
	MultiCurrency      bool `json:"multi_currency"`
	BarcodeScanner     bool `json:"barcode_scanner"`
	EmailNotifications bool `json:"email_notifications"`
	SMSNotifications   bool `json:"sms_notifications"`
}

// DashboardLayout describes the tenant's dashboard arrangement.
type DashboardLayout struct {
	Widgets         []string `json:"widgets"`
	Charts          []string `json:"charts"`
	ShowWeather     bool     `json:"show_weather"`
	ShowGPSMap      bool     `json:"show_gps_map"`
	DefaultView     string   `json:"default_view"`
	RefreshInterval int      `json:"refresh_interval"`
}

// DefaultBranding returns the stock appearance.
func DefaultBranding() Branding {
	return Branding{
		PrimaryColor:   "#3b82f6",
		SecondaryColor: "#8b5cf6",
		AppName:        "BK POS",
	}
}

// DefaultTerminology returns the stock concept names.
func DefaultTerminology() Terminology {
	return Terminology{
		Rider:          "Rider",
		RiderPlural:    "Riders",
		Warehouse:      "Warehouse",
		POS:            "POS",
		Product:        "Product",
		ProductPlural:  "Products",
		Customer:       "Customer",
		CustomerPlural: "Customers",
		Order:          "Order",
		OrderPlural:    "Orders",
		Return:         "Return",
		ReturnPlural:   "Returns",
		Report:         "Report",
		ReportPlural:   "Reports",
		Dashboard:      "Dashboard",
		Settings:       "Settings",
	}
}

// DefaultFeatures returns the stock feature flags.
func DefaultFeatures() Features {
	return Features{
		POS:                true,
		Warehouse:          true,
		Reports:            true,
		GPSTracking:        true,
		LowStockAlerts:     true,
		ReturnsManagement:  true,
		BarcodeScanner:     true,
		EmailNotifications: true,
	}
}

// DefaultDashboardLayout returns the stock dashboard arrangement.
func DefaultDashboardLayout() DashboardLayout {
	return DashboardLayout{
		Widgets:         []string{"sales", "stock", "riders", "orders"},
		Charts:          []string{"daily_sales", "top_products"},
		ShowGPSMap:      true,
		DefaultView:     "grid",
		RefreshInterval: 300,
	}
}
