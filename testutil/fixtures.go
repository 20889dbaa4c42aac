package testutil

import (
	"fmt"

	"github.com/hupe1980/fission/model"
)

// Task builds a record.
func Task(instruction, input, output string) model.TaskRecord {
	return model.TaskRecord{Instruction: instruction, Input: input, Output: output}
}

// SeedTasks returns three valid, mutually distinct seed records.
func SeedTasks() []model.TaskRecord {
	return []model.TaskRecord{
		Task("Give three tips for staying healthy.", "", "Eat vegetables, exercise daily and sleep well."),
		Task("Translate the following sentence into French.", "The cat sleeps on the sofa.", "Le chat dort sur le canapé."),
		Task("Explain why the sky appears blue during the day.", "", "Sunlight is scattered by air molecules and blue light scatters most."),
	}
}

var novel = []string{
	"Describe how photosynthesis converts sunlight into chemical energy.",
	"List common warning signs before a volcanic eruption.",
	"Why do ocean tides rise twice each day?",
	"Name household objects attracted by magnets.",
	"Summarize what causes consumer price inflation.",
	"Compare direct democracy with representative government.",
	"Outline glacier formation over many centuries.",
	"Explain vaccines training immune cells against viruses.",
	"Calculate friction force given weight and coefficient.",
	"Write recursive pseudocode computing factorial numbers.",
	"Suggest ways farmers reduce topsoil erosion.",
	"Define basal metabolic rate in simple terms.",
	"Estimate gravitational acceleration on the Moon.",
	"Classify these materials as conductors or insulators.",
	"Recommend birdwatching spots during autumn migration.",
	"Detail yogurt fermentation steps at home.",
	"Rank seismic magnitude scales by precision.",
	"Identify satellites orbiting Jupiter besides Europa.",
	"Contrast helpful gut bacteria versus harmful pathogens.",
	"Propose encryption practices protecting personal passwords.",
}

// NovelTask returns the i-th of twenty mutually distinct records; i wraps
// around.
func NovelTask(i int) model.TaskRecord {
	inst := novel[i%len(novel)]
	return Task(inst, "", fmt.Sprintf("Answer %d.", i))
}
