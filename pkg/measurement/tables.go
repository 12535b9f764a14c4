package measurement

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
)

// Tables holds the per-source lookup data used to normalize raw values.
//
// A percentile table has 100 entries: a value between entry n and entry
// n+1 is in the nth percentile. Tables usually ascend; a descending
// table (a sales rank, where smaller is better) is searched the other way.
type Tables struct {
	Popularity map[string][]float64  `yaml:"popularity"`
	Downloads  map[string][]float64  `yaml:"downloads"`
	Ratings    map[string][2]float64 `yaml:"ratings"`
	Prenormal  map[string]bool       `yaml:"prenormalized"`
}

// DefaultTables returns the built-in tables.
func DefaultTables() Tables {
	return Tables{
		Popularity: map[string][]float64{
			constants.DataSourceOverdrive:   overdrivePopularity,
			constants.DataSourceAmazon:      amazonPopularity,
			constants.DataSourceContentCafe: contentCafePopularity,
		},
		Downloads: map[string][]float64{
			constants.DataSourceGutenberg: gutenbergDownloads,
		},
		Ratings: map[string][2]float64{
			constants.DataSourceOverdrive:    {1, 5},
			constants.DataSourceAmazon:       {1, 5},
			constants.DataSourceUnglueIt:     {1, 5},
			constants.DataSourceNovelist:     {0, 5},
			constants.DataSourceLibraryStaff: {1, 5},
		},
		Prenormal: map[string]bool{
			constants.DataSourceMetadataWrangler: true,
		},
	}
}

// LoadTables reads tables from a YAML file and overlays them on the
// defaults, source by source.
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, errors.WrapIO("read", path, err)
	}
	var file Tables
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Tables{}, errors.WrapParse("yaml", path, err)
	}
	tables := DefaultTables()
	for source, d := range file.Popularity {
		tables.Popularity[source] = d
	}
	for source, d := range file.Downloads {
		tables.Downloads[source] = d
	}
	for source, scale := range file.Ratings {
		if scale[1] <= scale[0] {
			return Tables{}, errors.NewConfigError("measurement", "rating scale for "+source+" must have max greater than min", nil)
		}
		tables.Ratings[source] = scale
	}
	for source, ok := range file.Prenormal {
		tables.Prenormal[source] = ok
	}
	return tables, nil
}

var overdrivePopularity = []float64{1, 1, 1, 2, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7, 8, 9, 9, 10, 10, 11, 12, 13, 14, 15, 15, 16, 18, 19, 20, 21, 22, 24, 25, 26, 28, 30, 31, 33, 35, 37, 39, 41, 43, 46, 48, 51, 53, 56, 59, 63, 66, 70, 74, 78, 82, 87, 92, 97, 102, 108, 115, 121, 128, 135, 142, 150, 159, 168, 179, 190, 202, 216, 230, 245, 260, 277, 297, 319, 346, 372, 402, 436, 478, 521, 575, 632, 702, 777, 861, 965, 1100, 1248, 1428, 1665, 2020, 2560, 3535, 5805}

var amazonPopularity = []float64{14937330, 1974074, 1702163, 1553600, 1432635, 1327323, 1251089, 1184878, 1131998, 1075720, 1024272, 978514, 937726, 898606, 868506, 837523, 799879, 770211, 743194, 718052, 693932, 668030, 647121, 627642, 609399, 591843, 575970, 559942, 540713, 524397, 511183, 497576, 483884, 470850, 458438, 444475, 432528, 420088, 408785, 398420, 387895, 377244, 366837, 355406, 344288, 333747, 324280, 315002, 305918, 296420, 288522, 279185, 270824, 262801, 253865, 246224, 238239, 230537, 222611, 215989, 208641, 202597, 195817, 188939, 181095, 173967, 166058, 160032, 153526, 146706, 139981, 133348, 126689, 119201, 112447, 106795, 101250, 96534, 91052, 85837, 80619, 75292, 69957, 65075, 59901, 55616, 51624, 47598, 43645, 39403, 35645, 31795, 27990, 24496, 20780, 17740, 14102, 10498, 7090, 3861}

var contentCafePopularity = []float64{0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 3, 3, 3, 3, 3, 3, 3, 3, 3, 4, 4, 4, 4, 4, 4, 5, 5, 5, 5, 6, 6, 7, 8, 9, 10, 11, 14, 18, 25, 41, 125, 387}

var gutenbergDownloads = []float64{0, 1, 2, 3, 4, 5, 5, 6, 7, 7, 8, 8, 9, 9, 10, 10, 11, 12, 12, 12, 13, 14, 14, 15, 15, 16, 16, 17, 18, 18, 19, 19, 20, 21, 21, 22, 23, 23, 24, 25, 26, 27, 28, 28, 29, 30, 32, 33, 34, 35, 36, 37, 38, 40, 41, 43, 45, 46, 48, 50, 52, 55, 57, 60, 62, 65, 69, 72, 76, 79, 83, 87, 93, 99, 106, 114, 122, 130, 140, 152, 163, 179, 197, 220, 251, 281, 317, 367, 432, 501, 597, 658, 718, 801, 939, 1065, 1286, 1668, 2291, 4139}
