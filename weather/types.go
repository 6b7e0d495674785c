package weather

// Current is the normalized current-conditions report.
type Current struct {
	City          string  `json:"city"`
	Country       string  `json:"country"`
	Temperature   float64 `json:"temperature"`
	FeelsLike     float64 `json:"feels_like"`
	Humidity      int     `json:"humidity"`
	Pressure      int     `json:"pressure"`
	Description   string  `json:"description"`
	WindSpeed     float64 `json:"wind_speed"`
	WindDirection int     `json:"wind_direction"`
	VisibilityKM  float64 `json:"visibility_km"`
	Source        string  `json:"source"`
	Timestamp     int64   `json:"timestamp"`
}

// Day is one forecast entry.
type Day struct {
	Date        string  `json:"date"`
	TempMin     float64 `json:"temp_min"`
	TempMax     float64 `json:"temp_max"`
	Description string  `json:"description"`
	Humidity    int     `json:"humidity"`
	RainChance  float64 `json:"rain_chance"`
}

// Forecast is a multi-day forecast.
type Forecast struct {
	City    string `json:"city"`
	Country string `json:"country"`
	Days    []Day  `json:"days"`
	Source  string `json:"source"`
}

// MultiCity aggregates current conditions for several cities. Values are
// either Current or an error string per city.
type MultiCity struct {
	Cities    map[string]any `json:"cities"`
	Total     int            `json:"total"`
	Timestamp string         `json:"timestamp"`
}

// owmCurrent mirrors the subset of the OpenWeatherMap /weather response we use.
type owmCurrent struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
	Visibility int   `json:"visibility"`
	Dt         int64 `json:"dt"`
}

// owmForecast mirrors the subset of the OpenWeatherMap /forecast response we use.
type owmForecast struct {
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
	List []struct {
		DtTxt string `json:"dt_txt"`
		Main  struct {
			TempMin  float64 `json:"temp_min"`
			TempMax  float64 `json:"temp_max"`
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Pop float64 `json:"pop"`
	} `json:"list"`
}
