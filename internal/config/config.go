package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`

	Database Database `envPrefix:"DATABASE_"`
	Auth     Auth     `envPrefix:"JWT_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	VNPay    VNPay    `envPrefix:"VNPAY_"`
	Shipping Shipping `envPrefix:"SHIPPING_"`
	Payment  Payment  `envPrefix:"PAYMENT_"`
}

type Database struct {
	Driver string `env:"DRIVER" envDefault:"mysql"` // mysql | sqlite
	URL    string `env:"URL"`
}

type Auth struct {
	Secret string `env:"SECRET"`
}

// Redis is optional; an empty address disables the shop cache.
type Redis struct {
	Addr     string        `env:"ADDR"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	ShopTTL  time.Duration `env:"SHOP_TTL" envDefault:"10m"`
}

type VNPay struct {
	Version    string        `env:"VERSION" envDefault:"2.1.0"`
	TmnCode    string        `env:"TMN_CODE"`
	HashSecret string        `env:"HASH_SECRET"`
	Endpoint   string        `env:"ENDPOINT"`
	ReturnURL  string        `env:"RETURN_URL"`
	Locale     string        `env:"LOCALE" envDefault:"vn"`
	Currency   string        `env:"CURRENCY" envDefault:"VND"`
	ExpireIn   time.Duration `env:"EXPIRE_IN" envDefault:"15m"`
	Timezone   string        `env:"TIMEZONE" envDefault:"Asia/Ho_Chi_Minh"`
}

// Shipping describes the tiered fee table. Bands are "maxKm:fee" pairs.
type Shipping struct {
	Bands         string `env:"BANDS" envDefault:"20:10000,50:20000,200:30000"`
	BeyondFee     string `env:"BEYOND_FEE" envDefault:"40000"`
	FreeThreshold string `env:"FREE_THRESHOLD" envDefault:"500000"`
}

type Payment struct {
	LockTimeout   time.Duration `env:"LOCK_TIMEOUT" envDefault:"5s"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
