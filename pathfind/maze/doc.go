// Package maze generates wall layouts for the pathfinding engine.
//
// Layouts are [][]bool indexed [y][x], the same shape Engine.SetBlocks
// accepts. Open cells sit on odd coordinates and the outer ring is always
// wall, so (1,1) is open in every maze.
package maze
