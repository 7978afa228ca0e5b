package common_tools

//go:generate ../../gen_schema -func=GetForecast -file=get_forecast.go -out=../schemas/cached_schemas

// GetForecast is a tool to get the weather forecast for a specific location
func GetForecast(location string) (string, error) {
	return "The forecast for " + location + " is sunny with a high of 75F", nil
}
