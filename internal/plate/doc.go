// Package plate reads a license plate out of a frame given the plate's
// bounding box.
//
// A read runs in three stages:
//
//  1. Extract derives nine crops from the box: the box itself and eight
//     copies shifted up, down, left, right and diagonally by 10% of the box
//     origin. Shifted crops are moved back inside the frame, never resized,
//     so every crop of a box has the same size.
//  2. Recognizer segments each crop into character-shaped components,
//     reads each one with OCR and maps its position back to frame pixels.
//  3. Consensus pools the detections of all crops, merges detections within
//     one pixel of each other on both axes, keeps the most confident one per
//     cluster, drops anything under MinConfidence and orders the rest
//     left-to-right.
//
// Reader runs stage 1 and 2 for all crops concurrently, each under its own
// timeout, and stage 3 once the pool is complete. A crop that fails or times
// out contributes nothing; an empty plate string is a normal result.
package plate
