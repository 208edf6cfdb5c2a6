package domain

// ScheduleQuery is the client-facing part of an all-airline schedule search.
type ScheduleQuery struct {
	TripType    string `json:"tripType"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	DepartDate  string `json:"departDate"`
	ReturnDate  string `json:"returnDate,omitempty"`
	PaxAdult    int    `json:"paxAdult"`
	PaxChild    int    `json:"paxChild"`
	PaxInfant   int    `json:"paxInfant"`
	PromoCode   string `json:"promoCode,omitempty"`
}

// JourneySegment is one journey offered by an airline for the searched route.
type JourneySegment struct {
	AirlineID        string          `json:"airlineID"`
	JourneyReference string          `json:"jiJourneyReference"`
	Origin           string          `json:"jiOrigin"`
	Destination      string          `json:"jiDestination"`
	DepartTime       string          `json:"jiDepartTime"`
	ArriveTime       string          `json:"jiArrivalTime"`
	Fare             float64         `json:"sumFare"`
	Segments         []FlightSegment `json:"segment"`
}

type FlightSegment struct {
	FlightNumber string `json:"flightNumber"`
	Origin       string `json:"fdOrigin"`
	Destination  string `json:"fdDestination"`
	DepartTime   string `json:"fdDepartTime"`
	ArriveTime   string `json:"fdArrivalTime"`
	FlightClass  string `json:"fdFlightClass"`
}

// ScheduleResult is what an aggregation run accumulated. Complete is false when
// the run stopped on a vendor failure or on the step cap; Message then carries
// the reason.
type ScheduleResult struct {
	Departures   []JourneySegment `json:"journeyDepart"`
	Returns      []JourneySegment `json:"journeyReturn"`
	TotalAirline int              `json:"totalAirline"`
	Steps        int              `json:"steps"`
	Complete     bool             `json:"complete"`
	Message      string           `json:"message,omitempty"`
}
